/*
Package irc implements the protocol engine of a single-server chat network
speaking a subset of RFC 2812 (Internet Relay Chat: Client Protocol).

The engine is an mplex.EventHandler. It owns every User and Channel and is
driven exclusively by the reactor's connect, disconnect and message
notifications, so it needs no locking. Replies and broadcasts go back out
through the Transport the engine was created with.

# Commands

## Registration

- PASS, checked against the shared server password (plain or bcrypt)
- CAP, with an always empty capability list; CAP END finishes negotiation
- NICK, USER

A connection becomes registered once the password matched, a nickname and a
username are set and capability negotiation is either unused or finished.
Every other command is refused with 451 before that.

## Channels

  - JOIN with comma separated channel and key lists
  - PART, PRIVMSG, TOPIC, INVITE, KICK
  - MODE with the channel modes i (invite-only), t (topic restriction),
    k (key), o (operator) and l (member limit)

## Connection

- PING, answered with PONG
- QUIT, with an optional farewell message relayed to channel peers

# Lifecycle events

Server.Events exposes hooks.Registry values for registrations, disconnects,
channel creation and removal and every dispatched command. They run
synchronously on the reactor goroutine.
*/
package irc
