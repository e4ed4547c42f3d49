package irc

import (
	"strings"
)

type command struct {
	handle func(s *Server, u *User, rest string)
	// preRegistration commands are accepted before registration completed.
	preRegistration bool
}

// commands is the dispatch table. Keywords match case-sensitively.
var commands = map[string]command{
	"PASS":    {handle: (*Server).handlePass, preRegistration: true},
	"CAP":     {handle: (*Server).handleCap, preRegistration: true},
	"NICK":    {handle: (*Server).handleNick, preRegistration: true},
	"USER":    {handle: (*Server).handleUser, preRegistration: true},
	"QUIT":    {handle: (*Server).handleQuit, preRegistration: true},
	"JOIN":    {handle: (*Server).handleJoin},
	"PART":    {handle: (*Server).handlePart},
	"PRIVMSG": {handle: (*Server).handlePrivmsg},
	"TOPIC":   {handle: (*Server).handleTopic},
	"MODE":    {handle: (*Server).handleMode},
	"INVITE":  {handle: (*Server).handleInvite},
	"KICK":    {handle: (*Server).handleKick},
	"PING":    {handle: (*Server).handlePing},
}

// handlePass handles a PASS command
func (s *Server) handlePass(u *User, rest string) {
	if u.loggedIn {
		s.sendNumeric(u, ERR_ALREADYREGISTERED, ":You may not reregister")
		return
	}

	if !s.password.Match(trailing(rest)) {
		s.log.WithField("remote", u.client.String()).Warn("Password mismatch")
		s.rejectPassword(u)
		return
	}

	u.passwordProvided = true
	s.tryLogIn(u)
}

// handleCap handles a CAP command. No capabilities are offered.
func (s *Server) handleCap(u *User, rest string) {
	u.capStarted = true

	if SplitBefore(&rest, ' ') == "END" {
		u.capEnded = true
	} else {
		s.send(u, ":"+s.name+" CAP * LS :")
	}

	s.tryLogIn(u)
}

// handleNick handles a NICK command
func (s *Server) handleNick(u *User, rest string) {
	nick := trailing(rest)

	if nick == "" {
		s.sendNumeric(u, ERR_NONICKNAMEGIVEN, ":No nickname given")
		return
	}
	if strings.ContainsAny(nick, "#&:; ") {
		s.sendNumeric(u, ERR_ERRONEUSNICKNAME, nick+" :Erroneous nickname, it may not contain \"#&:; \"")
		return
	}
	if nick == u.nickname {
		return
	}
	if _, taken := s.nicks[nick]; taken {
		s.sendNumeric(u, ERR_NICKNAMEINUSE, nick+" :Nickname is already in use")
		return
	}

	s.rename(u, nick)
	s.tryLogIn(u)
}

// handleUser handles a USER command. Completing USER without a matching
// PASS first is fatal to the connection.
func (s *Server) handleUser(u *User, rest string) {
	if u.loggedIn {
		s.sendNumeric(u, ERR_ALREADYREGISTERED, ":You may not reregister")
		return
	}

	username := SplitBefore(&rest, ' ')
	hostname := SplitBefore(&rest, ' ')
	if username == "" || hostname == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "USER :Not enough parameters")
		s.sendNumeric(u, ERR_NOTREGISTERED, ":You have not registered")
		return
	}

	u.username = username
	u.hostname = hostname
	s.tryLogIn(u)

	if !u.passwordProvided {
		s.rejectPassword(u)
	}
}

// handleQuit handles a QUIT command. The disconnect path does the cleanup.
func (s *Server) handleQuit(u *User, rest string) {
	u.farewell = trailing(rest)

	reason := "Quit: User disconnected"
	if u.farewell != "" {
		reason = "Quit: " + u.farewell
	}
	s.closeLink(u, reason)
}

// handlePing handles a PING command
func (s *Server) handlePing(u *User, rest string) {
	if rest == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "PING :Not enough parameters")
		return
	}
	s.send(u, ":"+s.name+" PONG "+s.name+" "+rest)
}
