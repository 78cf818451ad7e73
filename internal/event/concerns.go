package event

import (
	"strings"
)

// Concerns reports whether the event names the viewer on any side.
// Events that cannot be decoded concern nobody.
func Concerns(e *RawEvent, viewer string) bool {
	payload, err := Decode(e)
	if err != nil {
		return false
	}

	for _, party := range Parties(payload) {
		if strings.EqualFold(party, viewer) {
			return true
		}
	}

	return false
}

// Parties lists the addresses an event is about.
// A MessageRead names its reader only; the sender is not part of the payload.
func Parties(payload Payload) []string {
	switch p := payload.(type) {
	case *MessageSent:
		return []string{p.Sender, p.Recipient}
	case *MessageRead:
		return []string{p.Reader}
	case *UserRegistered:
		return []string{p.User}
	case *SwipeEvent:
		return []string{p.Swiper, p.Swiped}
	case *MatchCreated:
		return []string{p.User1, p.User2}
	case *DiceRolled:
		return []string{p.Player}
	case *QuestionAnswered:
		return []string{p.Player}
	case *GroupCreated:
		return []string{p.Creator}
	case *NFTMinted:
		return []string{p.Creator, p.Recipient}
	case *NFTTransferred:
		return []string{p.From, p.To}
	default:
		return nil
	}
}
