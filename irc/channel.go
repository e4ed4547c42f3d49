package irc

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Channel is a named group of users. A channel exists exactly as long as it
// has members; the operators are always a subset of the members.
type Channel struct {
	name    string
	created time.Time

	topic       string
	topicSet    bool
	topicSetter string
	topicTime   time.Time

	members   map[string]struct{}
	operators map[string]struct{}
	invited   map[string]struct{}

	key            string
	limit          int
	inviteOnly     bool
	topicProtected bool
}

// newChannel creates a channel with founder as its sole member and operator.
func newChannel(name, founder string, now time.Time) *Channel {
	ch := &Channel{
		name:      name,
		created:   now,
		members:   make(map[string]struct{}),
		operators: make(map[string]struct{}),
		invited:   make(map[string]struct{}),
	}
	ch.addMember(founder)
	ch.addOperator(founder)
	return ch
}

// Name returns the channel name including its prefix.
func (ch *Channel) Name() string { return ch.name }

// Created returns the creation time.
func (ch *Channel) Created() time.Time { return ch.created }

// Topic returns the topic and whether one was ever set.
func (ch *Channel) Topic() (string, bool) { return ch.topic, ch.topicSet }

// TopicSetter returns the signature of whoever set the topic last.
func (ch *Channel) TopicSetter() string { return ch.topicSetter }

// Key returns the join key, empty when none is required.
func (ch *Channel) Key() string { return ch.key }

// Limit returns the member limit, 0 meaning unlimited.
func (ch *Channel) Limit() int { return ch.limit }

// InviteOnly reports whether mode +i is set.
func (ch *Channel) InviteOnly() bool { return ch.inviteOnly }

// TopicProtected reports whether mode +t is set.
func (ch *Channel) TopicProtected() bool { return ch.topicProtected }

// MemberCount returns the number of members.
func (ch *Channel) MemberCount() int { return len(ch.members) }

// IsMember reports whether nick is on the channel.
func (ch *Channel) IsMember(nick string) bool {
	_, ok := ch.members[nick]
	return ok
}

// IsOperator reports whether nick is a channel operator.
func (ch *Channel) IsOperator(nick string) bool {
	_, ok := ch.operators[nick]
	return ok
}

// IsInvited reports whether nick holds an invitation.
func (ch *Channel) IsInvited(nick string) bool {
	_, ok := ch.invited[nick]
	return ok
}

// Members returns the member nicknames, sorted.
func (ch *Channel) Members() []string {
	return sortedKeys(ch.members)
}

// Operators returns the operator nicknames, sorted.
func (ch *Channel) Operators() []string {
	return sortedKeys(ch.operators)
}

// Names renders the member list for RPL_NAMREPLY, operators first and
// prefixed with @.
func (ch *Channel) Names() string {
	names := make([]string, 0, len(ch.members))
	for _, op := range ch.Operators() {
		names = append(names, "@"+op)
	}
	for _, nick := range ch.Members() {
		if !ch.IsOperator(nick) {
			names = append(names, nick)
		}
	}
	return strings.Join(names, " ")
}

// Modes renders the mode letters with their arguments. The key is only
// revealed when showKey is set.
func (ch *Channel) Modes(showKey bool) string {
	var sb strings.Builder
	var args []string

	sb.WriteByte('+')
	if ch.inviteOnly {
		sb.WriteByte('i')
	}
	if ch.topicProtected {
		sb.WriteByte('t')
	}
	if ch.key != "" {
		sb.WriteByte('k')
		if showKey {
			args = append(args, ch.key)
		}
	}
	if ch.limit > 0 {
		sb.WriteByte('l')
		args = append(args, strconv.Itoa(ch.limit))
	}
	for _, arg := range args {
		sb.WriteByte(' ')
		sb.WriteString(arg)
	}
	return sb.String()
}

func (ch *Channel) keyFits(key string) bool {
	return ch.key == "" || ch.key == key
}

// full reports whether a configured member limit is reached.
func (ch *Channel) full() bool {
	return ch.limit > 0 && len(ch.members) >= ch.limit
}

func (ch *Channel) addMember(nick string)   { ch.members[nick] = struct{}{} }
func (ch *Channel) addOperator(nick string) { ch.operators[nick] = struct{}{} }
func (ch *Channel) removeOperator(nick string) {
	delete(ch.operators, nick)
}

// removeMember drops nick from the members and the operators.
func (ch *Channel) removeMember(nick string) {
	delete(ch.operators, nick)
	delete(ch.members, nick)
}

func (ch *Channel) invite(nick string)   { ch.invited[nick] = struct{}{} }
func (ch *Channel) uninvite(nick string) { delete(ch.invited, nick) }

// rename moves every trace of oldNick over to newNick.
func (ch *Channel) rename(oldNick, newNick string) {
	for _, set := range []map[string]struct{}{ch.members, ch.operators, ch.invited} {
		if _, ok := set[oldNick]; ok {
			delete(set, oldNick)
			set[newNick] = struct{}{}
		}
	}
}

func (ch *Channel) setTopic(topic, setter string, now time.Time) {
	ch.topic = topic
	ch.topicSet = true
	ch.topicSetter = setter
	ch.topicTime = now
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
