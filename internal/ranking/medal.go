package ranking

// Medal decorates the top three places.
type Medal string

// Medals. Ranks past third get none.
const (
	NoMedal Medal = ""
	Gold    Medal = "gold"
	Silver  Medal = "silver"
	Bronze  Medal = "bronze"
)

// MedalFor returns the medal for rank. Tied rows share a rank and so share the medal.
func MedalFor(rank int) Medal {
	switch rank {
	case 1:
		return Gold
	case 2:
		return Silver
	case 3:
		return Bronze
	default:
		return NoMedal
	}
}
