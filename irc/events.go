package irc

import "github.com/presbrey/ircserv/hooks"

// CommandEvent describes one dispatched frame.
type CommandEvent struct {
	User    *User
	Command string
	// Known is false for keywords outside the command table.
	Known bool
}

// Events are the engine lifecycle hooks.
type Events struct {
	Registered     *hooks.Registry[*User]
	Disconnected   *hooks.Registry[*User]
	ChannelCreated *hooks.Registry[*Channel]
	ChannelRemoved *hooks.Registry[*Channel]
	Command        *hooks.Registry[CommandEvent]
}

func newEvents() *Events {
	return &Events{
		Registered:     hooks.NewRegistry[*User]("registered"),
		Disconnected:   hooks.NewRegistry[*User]("disconnected"),
		ChannelCreated: hooks.NewRegistry[*Channel]("channel_created"),
		ChannelRemoved: hooks.NewRegistry[*Channel]("channel_removed"),
		Command:        hooks.NewRegistry[CommandEvent]("command"),
	}
}
