/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "github.com/friendsincode/playcore/internal/apierr"

// EndReason explains why a file stopped playing.
type EndReason int

const (
	ReasonEOF       EndReason = 0
	ReasonRestarted EndReason = 1
	ReasonStop      EndReason = 2
	ReasonQuit      EndReason = 3
	ReasonError     EndReason = 4
	ReasonRedirect  EndReason = 5
	ReasonNext      EndReason = 6
	ReasonPrev      EndReason = 7
)

func (r EndReason) String() string {
	switch r {
	case ReasonEOF:
		return "eof"
	case ReasonRestarted:
		return "restarted"
	case ReasonStop:
		return "stop"
	case ReasonQuit:
		return "quit"
	case ReasonError:
		return "error"
	case ReasonRedirect:
		return "redirect"
	case ReasonNext:
		return "next"
	case ReasonPrev:
		return "prev"
	default:
		return "unknown"
	}
}

// StartFileData accompanies StartFile.
type StartFileData struct {
	EntryID string
}

// EndFileData accompanies EndFile.
type EndFileData struct {
	Reason EndReason
	Error  apierr.Code
	// EntryID is the playlist entry that ended.
	EntryID string
	// InsertID and InsertCount describe entries added by a redirect.
	InsertID    string
	InsertCount int
}

// PropertyData accompanies PropertyChange and GetPropertyReply.
type PropertyData struct {
	Name  string
	Value any
	Valid bool
}

// LogMessageData accompanies LogMessage.
type LogMessageData struct {
	Prefix string
	Level  string
	Text   string
}

// ClientMessageData accompanies ClientMessage.
type ClientMessageData struct {
	Args []string
}

// Clone copies the argument slice so recipients never share it.
func (m ClientMessageData) Clone() any {
	return ClientMessageData{Args: append([]string(nil), m.Args...)}
}

// HookData accompanies Hook. ID is passed back to hook_continue.
type HookData struct {
	Name string
	ID   uint64
}

// CommandReplyData accompanies CommandReply.
type CommandReplyData struct {
	Result any
}

// ToMap renders ev in the JSON shape used by the IPC surfaces.
func ToMap(ev Event) map[string]any {
	out := map[string]any{"event": ev.Kind.String()}
	if ev.Error < 0 {
		out["error"] = apierr.String(ev.Error)
	}
	if ev.ReplyUserdata != 0 {
		out["id"] = ev.ReplyUserdata
	}

	switch data := ev.Data.(type) {
	case StartFileData:
		out["playlist_entry_id"] = data.EntryID
	case EndFileData:
		out["reason"] = data.Reason.String()
		out["playlist_entry_id"] = data.EntryID
		if data.InsertID != "" {
			out["playlist_insert_id"] = data.InsertID
			out["playlist_insert_num_entries"] = data.InsertCount
		}
		if data.Reason == ReasonError {
			out["file_error"] = apierr.String(data.Error)
		}
	case PropertyData:
		out["name"] = data.Name
		if data.Valid {
			out["data"] = data.Value
		}
	case LogMessageData:
		out["prefix"] = data.Prefix
		out["level"] = data.Level
		out["text"] = data.Text
	case ClientMessageData:
		out["args"] = data.Args
	case HookData:
		out["hook_id"] = data.ID
		out["hook_name"] = data.Name
	case CommandReplyData:
		out["data"] = data.Result
	}
	return out
}
