package game

// Outcome is one bettable card slot within a mode. Rank, suit and color
// are labeling only; the engine cares about the ID.
type Outcome struct {
	ID    string `json:"id"`
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Color string `json:"color,omitempty"`
}

// Mode is a static table configuration: its outcome set and payout
// multiplier. The catalog is immutable for the process lifetime.
type Mode struct {
	ID         string    `json:"id"`
	Multiplier int64     `json:"multiplier"`
	Outcomes   []Outcome `json:"outcomes"`
}

const (
	Mode2X  = "2X"
	Mode10X = "10X"
)

var catalog = []Mode{
	{
		ID:         Mode2X,
		Multiplier: 2,
		Outcomes: []Outcome{
			{ID: "red", Rank: "K", Suit: "♥", Color: "red"},
			{ID: "black", Rank: "Q", Suit: "♠", Color: "black"},
		},
	},
	{
		ID:         Mode10X,
		Multiplier: 10,
		Outcomes: []Outcome{
			{ID: "1", Rank: "A", Suit: "♠"},
			{ID: "2", Rank: "2", Suit: "♥"},
			{ID: "3", Rank: "3", Suit: "♣"},
			{ID: "4", Rank: "4", Suit: "♦"},
			{ID: "5", Rank: "5", Suit: "♠"},
			{ID: "6", Rank: "6", Suit: "♥"},
			{ID: "7", Rank: "7", Suit: "♣"},
			{ID: "8", Rank: "8", Suit: "♦"},
			{ID: "9", Rank: "9", Suit: "♠"},
			{ID: "10", Rank: "10", Suit: "♥"},
		},
	},
}

// Modes returns a copy of the catalog.
func Modes() []Mode {
	return append([]Mode(nil), catalog...)
}

func ModeByID(id string) (Mode, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Mode{}, false
}

func (m Mode) HasOutcome(id string) bool {
	for _, o := range m.Outcomes {
		if o.ID == id {
			return true
		}
	}
	return false
}
