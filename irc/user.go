package irc

import (
	"sort"

	"github.com/presbrey/ircserv/mplex"
)

// User is the protocol state of one connection.
type User struct {
	client mplex.Client

	nickname string
	username string
	hostname string

	passwordProvided bool
	capStarted       bool
	capEnded         bool
	loggedIn         bool

	invitations map[string]struct{}
	farewell    string
}

func newUser(c mplex.Client) *User {
	return &User{
		client:      c,
		invitations: make(map[string]struct{}),
	}
}

// Client returns the connection handle of the user.
func (u *User) Client() mplex.Client { return u.client }

// Nickname returns the current nickname, empty until one was accepted.
func (u *User) Nickname() string { return u.nickname }

// Username returns the username given with USER.
func (u *User) Username() string { return u.username }

// Hostname returns the hostname given with USER.
func (u *User) Hostname() string { return u.hostname }

// LoggedIn reports whether registration completed.
func (u *User) LoggedIn() bool { return u.loggedIn }

// Signature renders the user as nick!username@hostname.
func (u *User) Signature() string {
	return u.nickname + "!" + u.username + "@" + u.hostname
}

// Invited reports whether the user holds an invitation to channel.
func (u *User) Invited(channel string) bool {
	_, ok := u.invitations[channel]
	return ok
}

// Invitations returns the channels the user is invited to, sorted.
func (u *User) Invitations() []string {
	names := make([]string, 0, len(u.invitations))
	for name := range u.invitations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// target is the nickname used as the first parameter of numeric replies.
func (u *User) target() string {
	if u.nickname == "" {
		return "*"
	}
	return u.nickname
}

// readyToLogIn reports whether all registration requirements are met.
func (u *User) readyToLogIn() bool {
	return u.passwordProvided &&
		u.nickname != "" &&
		u.username != "" &&
		(!u.capStarted || u.capEnded)
}

func (u *User) invite(channel string)   { u.invitations[channel] = struct{}{} }
func (u *User) uninvite(channel string) { delete(u.invitations, channel) }
