package chat

import "iter"

// Transcript is the append-only message log of one session. There is no
// edit or delete operation; ordering is arrival order and the index of a
// message is stable for the life of the session.
type Transcript struct {
	messages []Message
}

func (t *Transcript) Append(message Message) {
	t.messages = append(t.messages, message.clone())
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) At(index int) (Message, bool) {
	if index < 0 || index >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[index].clone(), true
}

// All iterates (index, message) pairs in insertion order. The sequence is
// restartable and bounded by the messages appended before iteration starts.
func (t *Transcript) All() iter.Seq2[int, Message] {
	snapshot := t.messages[:len(t.messages):len(t.messages)]
	return func(yield func(int, Message) bool) {
		for i, message := range snapshot {
			if !yield(i, message.clone()) {
				return
			}
		}
	}
}
