// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/jeranaias/augchat/internal/chatapi"
	"github.com/jeranaias/augchat/internal/model"
)

// Sender issues a chat request. *chatapi.Client satisfies it.
type Sender interface {
	Stream(ctx context.Context, req chatapi.Request) (*chatapi.Response, error)
}

// Host is the shell the controller runs inside.
type Host interface {
	// SaveMessages is called after every history mutation with a copy of
	// the conversation.
	SaveMessages(conv *model.Conversation)

	// Notify surfaces a transient error to the user.
	Notify(err error)

	// Redirect sends the user to a login location.
	Redirect(url string)

	// ForceUpdate asks the host to redraw the history.
	ForceUpdate()
}

// HostFuncs adapts optional functions to Host. Nil fields are no-ops.
type HostFuncs struct {
	SaveFunc     func(conv *model.Conversation)
	NotifyFunc   func(err error)
	RedirectFunc func(url string)
	UpdateFunc   func()
}

func (h HostFuncs) SaveMessages(conv *model.Conversation) {
	if h.SaveFunc != nil {
		h.SaveFunc(conv)
	}
}

func (h HostFuncs) Notify(err error) {
	if h.NotifyFunc != nil {
		h.NotifyFunc(err)
	}
}

func (h HostFuncs) Redirect(url string) {
	if h.RedirectFunc != nil {
		h.RedirectFunc(url)
	}
}

func (h HostFuncs) ForceUpdate() {
	if h.UpdateFunc != nil {
		h.UpdateFunc()
	}
}
