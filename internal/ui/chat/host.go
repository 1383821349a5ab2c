// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/augchat/internal/model"
	"github.com/jeranaias/augchat/internal/session"
	"github.com/jeranaias/augchat/internal/storage"
	"github.com/jeranaias/augchat/internal/ui/components"
)

// host connects the controller to the TUI. Its methods run on the
// controller goroutine or, for Clear and Load, inside Update, so none of them
// touch Model state directly: they persist, push a toast, or queue a message.
// Anything reachable from Update must use post, since blocking on a full
// queue there would stop the loop that drains it.
type host struct {
	ctx    context.Context
	store  storage.Store
	toasts *components.ToastManager
	queue  chan<- tea.Msg
	log    zerolog.Logger
}

var _ session.Host = (*host)(nil)

// SaveMessages implements session.Host.
func (h *host) SaveMessages(conv *model.Conversation) {
	if h.store == nil {
		return
	}
	if err := h.store.Save(conv); err != nil {
		h.log.Error().Err(err).Str("conversation", conv.ID).Msg("save failed")
		h.toasts.AddError("Could not save chat: " + err.Error())
	}
}

// Notify implements session.Host.
func (h *host) Notify(err error) {
	h.toasts.AddError(err.Error())
}

// Redirect implements session.Host.
func (h *host) Redirect(url string) {
	h.send(RedirectMsg{URL: url})
}

// ForceUpdate implements session.Host. It is only called from Clear and Load.
func (h *host) ForceUpdate() {
	h.post(RefreshMsg{})
}

// send queues msg unless the UI has shut down.
func (h *host) send(msg tea.Msg) {
	select {
	case h.queue <- msg:
	case <-h.ctx.Done():
	}
}

// post queues msg without blocking and drops it when the queue is full.
func (h *host) post(msg tea.Msg) {
	select {
	case h.queue <- msg:
	default:
		h.log.Debug().Type("msg", msg).Msg("event queue full, dropping")
	}
}
