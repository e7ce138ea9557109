// Package wire implements the AniDB UDP API codec: command encoding,
// response parsing, zlib inflation, and AES-128-ECB session encryption.
// Grounded on adbb/commands.py (Command.flatten/escape) and
// adbb/mapper.py (field tables), generalized from the teacher's
// byte-level Marshal/Unmarshal idiom in internal/hdhomerun/packet.go.
package wire

import (
	"fmt"
	"sort"
	"strings"
)

// Command is a request to be sent to the AniDB UDP API.
type Command struct {
	Name   string
	Params map[string]string
}

// NewCommand returns a Command with an empty parameter set.
func NewCommand(name string) *Command {
	return &Command{Name: name, Params: map[string]string{}}
}

// Set adds or overwrites a parameter. Empty values are omitted by Encode.
func (c *Command) Set(key, value string) *Command {
	c.Params[key] = value
	return c
}

// Encode renders the wire form "COMMAND key=value&key=value&…\n"
// (spec.md §4.1): tag travels as the mandatory "tag" parameter, not as
// a line prefix — the line-prefixed tag belongs to the *response*
// grammar (wire.Parse), not the request. Matches adbb/commands.py's
// Command.authorize (parameters['tag'] = self.tag) and flatten/escape:
// "&" becomes "&amp;".
func (c *Command) Encode(tag string) string {
	params := make(map[string]string, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = v
	}
	params["tag"] = tag

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+escape(params[k]))
	}

	if len(pairs) == 0 {
		return fmt.Sprintf("%s\n", c.Name)
	}
	return fmt.Sprintf("%s %s\n", c.Name, strings.Join(pairs, "&"))
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "\n", "<br />")
	return s
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
