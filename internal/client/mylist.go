package client

import (
	"context"
	"strconv"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/mylist"
	"github.com/snapetech/anidbclient/internal/wire"
)

// Mylist codes, grounded on adbb/commands.py's MyListAddCommand /
// MyListDelCommand handle_response branches.
const (
	codeMylistEntryAdded  = 210
	codeFileInMylist      = 310
	codeMylistEdited      = 311
	codeMultipleMylist    = 312
	codeMylistDeleted     = 211
	codeNoSuchEntry       = 321
	codeMylistStats       = 222
	codeVoted             = 260
	codeVoteUpdated       = 261
)

// MylistAdd implements mylist.API: sends MYLISTADD for fid.
func (c *Client) MylistAdd(ctx context.Context, fid int, state, viewed string, edit bool) (mylist.AddResult, error) {
	cmd := wire.NewCommand("MYLISTADD").
		Set("fid", strconv.Itoa(fid)).
		Set("state", state).
		Set("viewed", boolParam(viewed == "1")).
		Set("edit", boolParam(edit))
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.MylistMutation.WithLabelValues("add").Inc()
	if err != nil {
		return mylist.AddResult{}, err
	}
	switch resp.Code {
	case codeMylistEntryAdded, codeFileInMylist:
		return mylist.AddResult{LID: firstInt(resp), Entries: 1}, nil
	case codeMylistEdited:
		return mylist.AddResult{LID: firstInt(resp), Edited: true, Entries: 1}, nil
	case codeMultipleMylist:
		return mylist.AddResult{LID: firstInt(resp), Entries: len(resp.Rows) + 1}, nil
	default:
		return mylist.AddResult{}, &anierrors.ProtocolViolation{Reason: "MYLISTADD: unexpected code " + strconv.Itoa(resp.Code)}
	}
}

// MylistDelByFID implements mylist.API.
func (c *Client) MylistDelByFID(ctx context.Context, fid int) error {
	cmd := wire.NewCommand("MYLISTDEL").Set("fid", strconv.Itoa(fid))
	return c.mylistDel(ctx, cmd)
}

// MylistDelByLID implements mylist.API.
func (c *Client) MylistDelByLID(ctx context.Context, lid int) error {
	cmd := wire.NewCommand("MYLISTDEL").Set("lid", strconv.Itoa(lid))
	return c.mylistDel(ctx, cmd)
}

// MylistDelByAIDEpno implements mylist.API.
func (c *Client) MylistDelByAIDEpno(ctx context.Context, aid int, epno string) error {
	cmd := wire.NewCommand("MYLISTDEL").Set("aid", strconv.Itoa(aid)).Set("epno", epno)
	return c.mylistDel(ctx, cmd)
}

// MylistDelBySizeED2k implements mylist.API, the last-resort identifier
// for a file AniDB itself has never matched to an fid (spec.md §4.9).
func (c *Client) MylistDelBySizeED2k(ctx context.Context, size int64, ed2k string) error {
	cmd := wire.NewCommand("MYLISTDEL").
		Set("size", strconv.FormatInt(size, 10)).
		Set("ed2k", ed2k)
	return c.mylistDel(ctx, cmd)
}

func (c *Client) mylistDel(ctx context.Context, cmd *wire.Command) error {
	resp, err := c.sendCommand(ctx, cmd, false)
	c.Metrics.MylistMutation.WithLabelValues("delete").Inc()
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return nil
		}
		return err
	}
	if resp.Code == codeNoSuchEntry {
		return nil
	}
	if resp.Code != codeMylistDeleted {
		return &anierrors.ProtocolViolation{Reason: "MYLISTDEL: unexpected code " + strconv.Itoa(resp.Code)}
	}
	return nil
}

// MylistLookup implements mylist.API: sends MYLIST for (aid, epno) and
// reports the lid of any existing server-side entry.
func (c *Client) MylistLookup(ctx context.Context, aid int, epno string) (int, bool, error) {
	cmd := wire.NewCommand("MYLIST").Set("aid", strconv.Itoa(aid)).Set("epno", epno)
	resp, err := c.sendCommand(ctx, cmd, false)
	if err != nil {
		if _, ok := err.(*anierrors.NotFound); ok {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(resp.Rows) == 0 {
		return 0, false, nil
	}
	return atoi(resp.Rows[0][0]), true, nil
}

// MylistStats sends MYLISTSTATS and returns the server's raw summary
// message, the original_source supplemental feature SPEC_FULL.md calls
// out (adbb/commands.py's MyListStatsCommand).
func (c *Client) MylistStats(ctx context.Context) (string, error) {
	resp, err := c.sendCommand(ctx, wire.NewCommand("MYLISTSTATS"), false)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Vote sends VOTE for an anime or episode, the original_source
// supplemental feature SPEC_FULL.md adds (adbb/commands.py's
// VoteCommand): voteType is "1" for permanent anime votes, "2" for
// temporary anime votes, "3" for episode votes.
func (c *Client) Vote(ctx context.Context, voteType string, id int, value int, epno string) error {
	cmd := wire.NewCommand("VOTE").
		Set("type", voteType).
		Set("id", strconv.Itoa(id)).
		Set("value", strconv.Itoa(value)).
		Set("epno", epno)
	resp, err := c.sendCommand(ctx, cmd, false)
	if err != nil {
		return err
	}
	if resp.Code != codeVoted && resp.Code != codeVoteUpdated {
		return &anierrors.ProtocolViolation{Reason: "VOTE: unexpected code " + strconv.Itoa(resp.Code)}
	}
	return nil
}

func boolParam(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func firstInt(resp *wire.Response) int {
	if len(resp.Rows) == 0 || len(resp.Rows[0]) == 0 {
		return atoi(firstField(resp.Message))
	}
	return atoi(resp.Rows[0][0])
}

// Mylist returns a mylist coordinator bound to this client.
func (c *Client) Mylist() *mylist.Coordinator { return mylist.New(c, c.Store) }
