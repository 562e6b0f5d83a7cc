package domain

import "fmt"

// Attribution is the tracker the collector attributed the install to.
type Attribution struct {
	TrackerToken string `json:"tracker_token" plist:"tracker_token"`
	TrackerName  string `json:"tracker_name" plist:"tracker_name"`
	Network      string `json:"network" plist:"network"`
	Campaign     string `json:"campaign" plist:"campaign"`
	Adgroup      string `json:"adgroup" plist:"adgroup"`
	Creative     string `json:"creative" plist:"creative"`
	ClickLabel   string `json:"click_label" plist:"click_label"`
}

// AttributionFromJSON extracts an attribution from a flattened response.
// It returns nil when no attribution key is present.
func AttributionFromJSON(json map[string]string) *Attribution {
	a := &Attribution{
		TrackerToken: json["tracker_token"],
		TrackerName:  json["tracker_name"],
		Network:      json["network"],
		Campaign:     json["campaign"],
		Adgroup:      json["adgroup"],
		Creative:     json["creative"],
		ClickLabel:   json["click_label"],
	}
	if *a == (Attribution{}) {
		return nil
	}
	return a
}

// Equal compares two attributions; nil equals only nil.
func (a *Attribution) Equal(other *Attribution) bool {
	if a == nil || other == nil {
		return a == other
	}
	return *a == *other
}

func (a *Attribution) String() string {
	return fmt.Sprintf("tt:%s tn:%s net:%s cam:%s adg:%s cre:%s cl:%s",
		a.TrackerToken, a.TrackerName, a.Network, a.Campaign, a.Adgroup, a.Creative, a.ClickLabel)
}
