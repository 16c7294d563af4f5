package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry: a role, an ordered list of content
// blocks, and, for assistant messages, the oracle correlation id. Messages
// are immutable once appended; the transcript stores and hands out copies
// so callers cannot alter history through retained slices.
type Message struct {
	Role      Role           `json:"role"`
	Content   []ContentBlock `json:"content"`
	RequestID string         `json:"request_id,omitempty"`
}

func UserMessage(prompt string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(prompt)}}
}

func AssistantMessage(requestID string, blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks, RequestID: requestID}
}

func (m Message) clone() Message {
	cloned := m
	if m.Content != nil {
		cloned.Content = make([]ContentBlock, len(m.Content))
		for i, block := range m.Content {
			cloned.Content[i] = block.clone()
		}
	}
	return cloned
}
