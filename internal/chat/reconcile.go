package chat

import "github.com/alexjbarnes/teamchat/internal/api"

// AppendIfNew merges an incoming message into a channel's message list.
// The merge is keyed on the server-assigned id, so replaying the same
// message any number of times leaves the list unchanged: a message the
// sender appended locally and then received back over the push channel
// appears exactly once.
//
// Returns the (possibly extended) list and whether the message was
// actually appended.
func AppendIfNew(list []api.Message, msg api.Message) ([]api.Message, bool) {
	for i := range list {
		if list[i].ID == msg.ID {
			return list, false
		}
	}

	return append(list, msg), true
}

// FindByID returns the message with the given id, or nil.
func FindByID(list []api.Message, id string) *api.Message {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}

	return nil
}

// RemoveByID returns the list without the message with the given id.
// Order of the remaining messages is preserved.
func RemoveByID(list []api.Message, id string) []api.Message {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}

	return list
}
