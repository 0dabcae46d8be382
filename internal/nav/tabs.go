package nav

import "fmt"

type Tab uint8

const (
	TabFiles Tab = iota
	TabNetwork
	TabAccessories
	TabPlayer
	tabCount
)

var tabNames = [tabCount]string{
	TabFiles:       "Files",
	TabNetwork:     "Network",
	TabAccessories: "Bluetooth",
	TabPlayer:      "Player",
}

func (t Tab) String() string {
	if t < tabCount {
		return tabNames[t]
	}
	return fmt.Sprintf("Tab(%d)", t)
}

func (t Tab) Next() Tab { return (t + 1) % tabCount }
func (t Tab) Prev() Tab { return (t + tabCount - 1) % tabCount }

func AllTabs() []Tab {
	return []Tab{TabFiles, TabNetwork, TabAccessories, TabPlayer}
}
