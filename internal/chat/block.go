package chat

// BlockType tags one content block variant inside a message. The tag values
// match the oracle wire format so transcripts round-trip through JSON
// unchanged.
type BlockType string

const (
	BlockText        BlockType = "text"
	BlockSuggestions BlockType = "suggestions"
	BlockSQL         BlockType = "sql"
)

// ContentBlock is one typed unit of user or assistant output. Exactly one
// of the payload fields is set, selected by Type.
type ContentBlock struct {
	Type        BlockType `json:"type"`
	Text        string    `json:"text,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Statement   string    `json:"statement,omitempty"`
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

func SuggestionsBlock(items ...string) ContentBlock {
	return ContentBlock{Type: BlockSuggestions, Suggestions: append([]string(nil), items...)}
}

func SQLBlock(statement string) ContentBlock {
	return ContentBlock{Type: BlockSQL, Statement: statement}
}

func (b ContentBlock) clone() ContentBlock {
	cloned := b
	if b.Suggestions != nil {
		cloned.Suggestions = append([]string(nil), b.Suggestions...)
	}
	return cloned
}
