// Package netrc resolves AniDB credentials from a .netrc file when they
// are not supplied directly, mirroring adbb's __init__.py netrc fallback
// (machine "api.anidb.net", login/password entries) using the teacher's
// plain line-scanning style (internal/config's LoadEnvFile/unquoteEnv).
package netrc

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Entry holds one parsed netrc machine block.
type Entry struct {
	Machine  string
	Login    string
	Password string
	Account  string
}

// Lookup parses path (or ~/.netrc if path is empty) and returns the entry
// for machine, if present.
func Lookup(path, machine string) (Entry, bool) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Entry{}, false
		}
		path = filepath.Join(home, ".netrc")
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()

	fields := tokenize(f)
	var cur Entry
	var have bool
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "machine":
			if have && cur.Machine == machine {
				return cur, true
			}
			i++
			if i >= len(fields) {
				break
			}
			cur = Entry{Machine: fields[i]}
			have = true
		case "default":
			if have && cur.Machine == machine {
				return cur, true
			}
			cur = Entry{Machine: ""}
			have = true
		case "login":
			i++
			if i < len(fields) {
				cur.Login = fields[i]
			}
		case "password":
			i++
			if i < len(fields) {
				cur.Password = fields[i]
			}
		case "account":
			i++
			if i < len(fields) {
				cur.Account = fields[i]
			}
		}
	}
	if have && cur.Machine == machine {
		return cur, true
	}
	return Entry{}, false
}

func tokenize(f *os.File) []string {
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line)...)
	}
	return out
}

// ApplyCredentials fills user/pass from the netrc entry for machine when
// either is empty, returning the (possibly unchanged) values.
func ApplyCredentials(path, machine, user, pass string) (string, string) {
	if user != "" && pass != "" {
		return user, pass
	}
	e, ok := Lookup(path, machine)
	if !ok {
		return user, pass
	}
	if user == "" {
		user = e.Login
	}
	if pass == "" {
		pass = e.Password
	}
	return user, pass
}
