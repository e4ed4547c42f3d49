package irc

import (
	"fmt"
	"strconv"
)

// modeState is carried across the characters of a mode string.
type modeState struct {
	sign byte   // '+' or '-'
	args string // unconsumed argument tokens
}

// handleMode handles a MODE command: MODE <channel> [<modestring> [<args>...]]
func (s *Server) handleMode(u *User, rest string) {
	name := SplitBefore(&rest, ' ')
	modestring := SplitBefore(&rest, ' ')
	if name == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return
	}

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHCHANNEL, name+" :No such channel")
		return
	}

	if modestring == "" {
		s.sendNumeric(u, RPL_CHANNELMODEIS, name+" "+ch.Modes(ch.IsMember(u.nickname)))
		s.sendNumeric(u, RPL_CREATIONTIME, fmt.Sprintf("%s %d", name, ch.created.Unix()))
		return
	}

	if !ch.IsOperator(u.nickname) {
		s.sendNumeric(u, ERR_CHANOPRIVSNEEDED, name+" :You're not channel operator")
		return
	}
	if modestring[0] != '+' && modestring[0] != '-' {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
		return
	}

	state := modeState{sign: modestring[0], args: rest}
	for i := 0; i < len(modestring); i++ {
		var ok bool
		if state, ok = s.applyMode(u, ch, state, modestring[i]); !ok {
			return
		}
	}
}

// applyMode applies a single mode character. It returns false when the rest
// of the mode string must not be processed.
func (s *Server) applyMode(u *User, ch *Channel, state modeState, mode byte) (modeState, bool) {
	set := state.sign == '+'
	announce := func(change string) {
		s.sendToChannel(ch, ":"+u.Signature()+" MODE "+ch.name+" "+change)
	}

	switch mode {
	case '+', '-':
		state.sign = mode

	case 'i':
		ch.inviteOnly = set
		announce(string(state.sign) + "i")

	case 't':
		ch.topicProtected = set
		announce(string(state.sign) + "t")

	case 'k':
		key := SplitBefore(&state.args, ' ')
		if key == "" {
			s.sendNumeric(u, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
			break
		}
		if set {
			ch.key = key
			announce("+k " + key)
		} else {
			ch.key = ""
			announce("-k *")
		}

	case 'o':
		nick := SplitBefore(&state.args, ' ')
		if nick == "" {
			s.sendNumeric(u, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
			break
		}
		if !ch.IsMember(nick) {
			s.sendNumeric(u, ERR_NOSUCHNICK, nick+" :No such nick")
			break
		}
		if set {
			ch.addOperator(nick)
		} else {
			ch.removeOperator(nick)
		}
		announce(string(state.sign) + "o " + nick)

	case 'l':
		if !set {
			ch.limit = 0
			announce("-l")
			break
		}
		arg := SplitBefore(&state.args, ' ')
		limit, err := strconv.Atoi(arg)
		if err != nil || limit < 0 {
			s.sendNumeric(u, ERR_NEEDMOREPARAMS, "MODE :Not enough parameters")
			break
		}
		ch.limit = limit
		announce("+l " + strconv.Itoa(limit))

	default:
		s.sendNumeric(u, ERR_UMODEUNKNOWNFLAG, ":Unknown MODE flag")
		return state, false
	}

	return state, true
}
