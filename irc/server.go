package irc

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/mplex"
)

// Transport is the part of the reactor the engine talks back to.
type Transport interface {
	SendTo(c mplex.Client, msg string)
	Multisend(clients []mplex.Client, msg string)
	DisconnectClient(c mplex.Client)
}

// Server is the protocol engine. All methods must run on the reactor
// goroutine.
type Server struct {
	name     string
	version  string
	created  time.Time
	password passwordChecker

	transport Transport
	users     map[uuid.UUID]*User
	nicks     map[string]*User
	channels  map[string]*Channel

	// Events are run synchronously from the engine.
	Events *Events

	log logrus.FieldLogger
	now func() time.Time
}

// NewServer creates an engine replying through t.
func NewServer(t Transport, cfg *config.Config) (*Server, error) {
	password, err := newPasswordChecker(cfg.Server.Password, cfg.Server.PasswordBcrypt)
	if err != nil {
		return nil, err
	}

	return &Server{
		name:      cfg.Server.Name,
		version:   cfg.Server.Version,
		created:   time.Now(),
		password:  password,
		transport: t,
		users:     make(map[uuid.UUID]*User),
		nicks:     make(map[string]*User),
		channels:  make(map[string]*Channel),
		Events:    newEvents(),
		log:       logrus.StandardLogger().WithField("component", "irc"),
		now:       time.Now,
	}, nil
}

// Name returns the server name used as the prefix of every reply.
func (s *Server) Name() string { return s.name }

// User returns the registered holder of nick.
func (s *Server) User(nick string) (*User, bool) {
	u, ok := s.nicks[nick]
	return u, ok
}

// Channel looks up a channel by name.
func (s *Server) Channel(name string) (*Channel, bool) {
	ch, ok := s.channels[name]
	return ch, ok
}

// UserCount returns the number of connections with a session.
func (s *Server) UserCount() int { return len(s.users) }

// ChannelCount returns the number of live channels.
func (s *Server) ChannelCount() int { return len(s.channels) }

// OnConnect creates the session of a freshly accepted connection.
func (s *Server) OnConnect(c mplex.Client) {
	s.users[c.ID()] = newUser(c)
	s.log.WithField("remote", c.String()).Info("New client")
}

// OnDisconnect tears the session down. Former channel peers of a registered
// user get one QUIT line each.
func (s *Server) OnDisconnect(c mplex.Client) {
	u, ok := s.users[c.ID()]
	if !ok {
		return
	}
	delete(s.users, c.ID())
	if u.nickname != "" && s.nicks[u.nickname] == u {
		delete(s.nicks, u.nickname)
	}
	for name := range u.invitations {
		if ch, ok := s.channels[name]; ok {
			ch.uninvite(u.nickname)
		}
	}

	s.log.WithFields(logrus.Fields{
		"nick":   u.target(),
		"remote": c.String(),
	}).Info("Client left")

	if u.loggedIn {
		reason := "Quit: User disconnected"
		if u.farewell != "" {
			reason = "Quit: " + u.farewell
		}
		peers := make(map[string]struct{})
		for _, ch := range s.sortedChannels() {
			if !ch.IsMember(u.nickname) {
				continue
			}
			for nick := range ch.members {
				if nick != u.nickname {
					peers[nick] = struct{}{}
				}
			}
			s.removeFromChannel(ch, u.nickname)
		}
		s.transport.Multisend(s.clientsOf(peers), ":"+u.Signature()+" QUIT :"+reason+mplex.Delimiter)
	}

	_ = s.Events.Disconnected.Run(u)
}

// OnMessage interprets one frame.
func (s *Server) OnMessage(msg mplex.Message) {
	u, ok := s.users[msg.Client.ID()]
	if !ok {
		return
	}

	name, rest := ParseFrame(msg.Text)
	if name == "" {
		return
	}
	s.log.WithField("nick", u.target()).Debugf("Command %s %q", name, rest)

	cmd, known := commands[name]
	_ = s.Events.Command.Run(CommandEvent{User: u, Command: name, Known: known})

	if !u.loggedIn && !(known && cmd.preRegistration) {
		s.sendNumeric(u, ERR_NOTREGISTERED, ":You have not registered")
		return
	}
	if !known {
		s.sendNumeric(u, ERR_UNKNOWNERROR, ":Could not parse command or parameters")
		return
	}
	cmd.handle(s, u, rest)
}

// tryLogIn completes registration once every requirement is met.
func (s *Server) tryLogIn(u *User) {
	if u.loggedIn || !u.readyToLogIn() {
		return
	}
	u.loggedIn = true
	s.log.WithFields(logrus.Fields{
		"nick":   u.nickname,
		"remote": u.client.String(),
	}).Info("Client registered")

	s.sendNumeric(u, RPL_WELCOME, ":Welcome to our single-server IRC network, "+u.Signature())
	s.sendNumeric(u, RPL_YOURHOST, fmt.Sprintf(":Your host is %s, running version %s", s.name, s.version))
	s.sendNumeric(u, RPL_CREATED, ":This server was created "+s.created.UTC().Format(time.RFC1123))
	s.sendNumeric(u, RPL_MYINFO, fmt.Sprintf("%s %s o itkol", s.name, s.version))

	_ = s.Events.Registered.Run(u)
}

// rejectPassword sends the fatal password error burst and drops u.
func (s *Server) rejectPassword(u *User) {
	s.sendNumeric(u, ERR_PASSWDMISMATCH, ":Password incorrect")
	s.sendNumeric(u, ERR_NOTREGISTERED, ":You have not registered")
	s.closeLink(u, "Password incorrect")
}

// closeLink sends the closing ERROR line and disconnects u.
func (s *Server) closeLink(u *User, reason string) {
	s.send(u, fmt.Sprintf("ERROR :Closing Link: %s (%s)", u.client.IP(), reason))
	s.transport.DisconnectClient(u.client)
}

// rename moves u to newNick in the registry and in every channel.
func (s *Server) rename(u *User, newNick string) {
	oldNick := u.nickname
	oldSignature := u.Signature()

	peers := make(map[string]struct{})
	for _, ch := range s.channels {
		if ch.IsMember(oldNick) {
			for nick := range ch.members {
				if nick != oldNick {
					peers[nick] = struct{}{}
				}
			}
		}
		ch.rename(oldNick, newNick)
	}

	if oldNick != "" {
		delete(s.nicks, oldNick)
	}
	s.nicks[newNick] = u
	u.nickname = newNick

	if u.loggedIn {
		peers[newNick] = struct{}{}
		s.transport.Multisend(s.clientsOf(peers), ":"+oldSignature+" NICK :"+newNick+mplex.Delimiter)
	}
}

// createChannel registers a new channel founded by u.
func (s *Server) createChannel(name string, u *User) *Channel {
	ch := newChannel(name, u.nickname, s.now())
	s.channels[name] = ch
	s.log.WithFields(logrus.Fields{"channel": name, "nick": u.nickname}).Debug("Channel created")
	_ = s.Events.ChannelCreated.Run(ch)
	return ch
}

// removeFromChannel drops nick from ch and destroys ch once it is empty.
func (s *Server) removeFromChannel(ch *Channel, nick string) {
	ch.removeMember(nick)
	if ch.MemberCount() > 0 {
		return
	}
	delete(s.channels, ch.name)
	for nick := range ch.invited {
		if u, ok := s.nicks[nick]; ok {
			u.uninvite(ch.name)
		}
	}
	s.log.WithField("channel", ch.name).Debug("Channel removed")
	_ = s.Events.ChannelRemoved.Run(ch)
}

// sendNumeric sends ":<server> <code> <nick-or-*> <text>".
func (s *Server) sendNumeric(u *User, code int, text string) {
	s.send(u, fmt.Sprintf(":%s %03d %s %s", s.name, code, u.target(), text))
}

// send queues one line for u.
func (s *Server) send(u *User, line string) {
	s.transport.SendTo(u.client, line+mplex.Delimiter)
}

// sendToNick queues one line for the holder of nick, if any.
func (s *Server) sendToNick(nick, line string) {
	if u, ok := s.nicks[nick]; ok {
		s.send(u, line)
	}
}

// sendToChannel queues one line for every member of ch.
func (s *Server) sendToChannel(ch *Channel, line string) {
	s.transport.Multisend(s.clientsOf(ch.members), line+mplex.Delimiter)
}

// sendToChannelExcept queues one line for every member of ch but except.
func (s *Server) sendToChannelExcept(ch *Channel, line, except string) {
	nicks := make(map[string]struct{}, len(ch.members))
	for nick := range ch.members {
		if nick != except {
			nicks[nick] = struct{}{}
		}
	}
	s.transport.Multisend(s.clientsOf(nicks), line+mplex.Delimiter)
}

// clientsOf resolves nicknames to connections in nickname order. Unknown
// nicknames are skipped.
func (s *Server) clientsOf(nicks map[string]struct{}) []mplex.Client {
	clients := make([]mplex.Client, 0, len(nicks))
	for _, nick := range sortedKeys(nicks) {
		if u, ok := s.nicks[nick]; ok {
			clients = append(clients, u.client)
		}
	}
	return clients
}

func (s *Server) sortedChannels() []*Channel {
	channels := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].name < channels[j].name })
	return channels
}
