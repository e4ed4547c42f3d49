package irc

import "fmt"

// handleJoin handles a JOIN command: JOIN <channel>{,<channel>} [<key>{,<key>}]
func (s *Server) handleJoin(u *User, rest string) {
	if rest == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "JOIN :Not enough parameters")
		return
	}

	names := trailing(SplitBefore(&rest, ' '))
	keys := trailing(SplitBefore(&rest, ' '))
	for names != "" {
		name := SplitBefore(&names, ',')
		key := SplitBefore(&keys, ',')
		s.join(u, name, key)
	}
}

func (s *Server) join(u *User, name, key string) {
	if !isChannelName(name) {
		s.sendNumeric(u, ERR_BADCHANMASK, name+" :Bad Channel Mask. Names must start with '#' or '&'")
		return
	}

	ch, exists := s.channels[name]
	if !exists {
		ch = s.createChannel(name, u)
		s.welcomeToChannel(ch, u)
		return
	}
	if ch.IsMember(u.nickname) {
		return
	}

	if !ch.keyFits(key) {
		s.sendNumeric(u, ERR_BADCHANNELKEY, name+" :Cannot join channel (+k)")
		return
	}
	if ch.full() {
		s.sendNumeric(u, ERR_CHANNELISFULL, name+" :Cannot join channel (+l)")
		return
	}
	if ch.inviteOnly {
		if !u.Invited(name) {
			s.sendNumeric(u, ERR_INVITEONLYCHAN, name+" :Cannot join channel (+i)")
			return
		}
		u.uninvite(name)
		ch.uninvite(u.nickname)
	}

	ch.addMember(u.nickname)
	s.welcomeToChannel(ch, u)
}

// welcomeToChannel announces the join to the channel and sends the topic
// and the names list to the joiner.
func (s *Server) welcomeToChannel(ch *Channel, u *User) {
	s.sendToChannel(ch, ":"+u.Signature()+" JOIN :"+ch.name)

	if topic, ok := ch.Topic(); ok {
		s.sendNumeric(u, RPL_TOPIC, ch.name+" :"+topic)
		s.sendNumeric(u, RPL_TOPICWHOTIME, fmt.Sprintf("%s %s %d", ch.name, ch.topicSetter, ch.topicTime.Unix()))
	}
	s.sendNumeric(u, RPL_NAMREPLY, "= "+ch.name+" :"+ch.Names())
	s.sendNumeric(u, RPL_ENDOFNAMES, ch.name+" :End of /NAMES list.")
}

// handlePart handles a PART command: PART <channel>{,<channel>} [:<reason>]
func (s *Server) handlePart(u *User, rest string) {
	if rest == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "PART :Not enough parameters")
		return
	}

	names := SplitBefore(&rest, ' ')
	reason := trailing(rest)
	for names != "" {
		name := SplitBefore(&names, ',')

		ch, ok := s.channels[name]
		if !ok {
			s.sendNumeric(u, ERR_NOSUCHCHANNEL, name+" :No such channel")
			continue
		}
		if !ch.IsMember(u.nickname) {
			s.sendNumeric(u, ERR_NOTONCHANNEL, name+" :You're not on that channel")
			continue
		}

		line := ":" + u.Signature() + " PART " + name
		if reason != "" {
			line += " :" + reason
		}
		s.sendToChannel(ch, line)
		s.removeFromChannel(ch, u.nickname)
	}
}

// handlePrivmsg handles a PRIVMSG command
func (s *Server) handlePrivmsg(u *User, rest string) {
	target := SplitBefore(&rest, ' ')
	text := trailing(rest)

	if target == "" {
		s.sendNumeric(u, ERR_NORECIPIENT, ":No recipient given (PRIVMSG)")
		return
	}
	if text == "" {
		s.sendNumeric(u, ERR_NOTEXTTOSEND, ":No text to send")
		return
	}

	line := ":" + u.Signature() + " PRIVMSG " + target + " :" + text

	if !isChannelName(target) {
		if _, ok := s.nicks[target]; !ok {
			s.sendNumeric(u, ERR_NOSUCHNICK, target+" :No such nick")
			return
		}
		s.sendToNick(target, line)
		return
	}

	ch, ok := s.channels[target]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHCHANNEL, target+" :No such channel")
		return
	}
	if !ch.IsMember(u.nickname) {
		s.sendNumeric(u, ERR_NOTONCHANNEL, target+" :You're not on that channel")
		return
	}
	s.sendToChannelExcept(ch, line, u.nickname)
}

// handleTopic handles a TOPIC command: TOPIC <channel> [:<topic>]
func (s *Server) handleTopic(u *User, rest string) {
	if rest == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "TOPIC :Not enough parameters")
		return
	}

	name := SplitBefore(&rest, ' ')
	topic := trailing(rest)

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHCHANNEL, name+" :No such channel")
		return
	}
	if !ch.IsMember(u.nickname) {
		s.sendNumeric(u, ERR_NOTONCHANNEL, name+" :You're not on that channel")
		return
	}

	if topic == "" {
		current, set := ch.Topic()
		if !set {
			s.sendNumeric(u, RPL_NOTOPIC, name+" :No topic is set")
			return
		}
		s.sendNumeric(u, RPL_TOPIC, name+" :"+current)
		s.sendNumeric(u, RPL_TOPICWHOTIME, fmt.Sprintf("%s %s %d", name, ch.topicSetter, ch.topicTime.Unix()))
		return
	}

	if ch.topicProtected && !ch.IsOperator(u.nickname) {
		s.sendNumeric(u, ERR_CHANOPRIVSNEEDED, name+" :You're not channel operator")
		return
	}

	ch.setTopic(topic, u.Signature(), s.now())
	s.sendToChannel(ch, ":"+u.Signature()+" TOPIC "+name+" :"+topic)
}

// handleInvite handles an INVITE command: INVITE <nick> <channel>
func (s *Server) handleInvite(u *User, rest string) {
	targetNick := SplitBefore(&rest, ' ')
	name := SplitBefore(&rest, ' ')
	if targetNick == "" || name == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "INVITE :Not enough parameters")
		return
	}

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHCHANNEL, name+" :No such channel")
		return
	}
	target, ok := s.nicks[targetNick]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHNICK, targetNick+" :No such nick")
		return
	}
	if !ch.IsMember(u.nickname) {
		s.sendNumeric(u, ERR_NOTONCHANNEL, name+" :You're not on that channel")
		return
	}
	if ch.inviteOnly && !ch.IsOperator(u.nickname) {
		s.sendNumeric(u, ERR_CHANOPRIVSNEEDED, name+" :You're not channel operator")
		return
	}
	if ch.IsMember(targetNick) {
		s.sendNumeric(u, ERR_USERONCHANNEL, targetNick+" "+name+" :is already on channel")
		return
	}

	target.invite(name)
	ch.invite(targetNick)
	s.sendNumeric(u, RPL_INVITING, targetNick+" "+name)
	s.send(target, ":"+u.Signature()+" INVITE "+targetNick+" :"+name)
}

// handleKick handles a KICK command: KICK <channel> <nick> [:<reason>]
func (s *Server) handleKick(u *User, rest string) {
	name := SplitBefore(&rest, ' ')
	targetNick := SplitBefore(&rest, ' ')
	reason := trailing(rest)
	if name == "" || targetNick == "" {
		s.sendNumeric(u, ERR_NEEDMOREPARAMS, "KICK :Not enough parameters")
		return
	}

	ch, ok := s.channels[name]
	if !ok {
		s.sendNumeric(u, ERR_NOSUCHCHANNEL, name+" :No such channel")
		return
	}
	if !ch.IsOperator(u.nickname) {
		s.sendNumeric(u, ERR_CHANOPRIVSNEEDED, name+" :You're not channel operator")
		return
	}
	if !ch.IsMember(targetNick) {
		s.sendNumeric(u, ERR_USERNOTINCHANNEL, targetNick+" "+name+" :They aren't on that channel")
		return
	}

	if reason == "" {
		reason = u.nickname
	}
	s.sendToChannel(ch, ":"+u.Signature()+" KICK "+name+" "+targetNick+" :"+reason)
	s.removeFromChannel(ch, targetNick)
}
