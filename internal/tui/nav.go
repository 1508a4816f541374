package tui

// screen is one page of the browser.
type screen int

const (
	screenHome screen = iota
	screenMyEvents
	screenOrganizer
	screenDetail
)

func (s screen) String() string {
	switch s {
	case screenHome:
		return "home"
	case screenMyEvents:
		return "my-events"
	case screenOrganizer:
		return "organizer"
	case screenDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Origin records which list opened a detail view, in the "from" and
// "view" terms of deep links: from=organiser|home, view=my.
type Origin struct {
	From string
	View string
}

func originOf(s screen) Origin {
	switch s {
	case screenOrganizer:
		return Origin{From: "organiser"}
	case screenMyEvents:
		return Origin{From: "home", View: "my"}
	default:
		return Origin{From: "home"}
	}
}

// backTarget is the list a detail view returns to. Anything unrecognised
// goes home.
func backTarget(o Origin) screen {
	switch o.From {
	case "organiser":
		return screenOrganizer
	case "home":
		if o.View == "my" {
			return screenMyEvents
		}
	}
	return screenHome
}
