package sim

import (
	"errors"

	"github.com/gregLibert/sim-card/pkg/iso7816"
)

// Profile binds a card type to its file catalog and status-word table.
// Profiles hold no mutable state and can be shared between sessions.
type Profile struct {
	Name        string
	Tree        *Tree
	StatusWords iso7816.StatusWordTable
}

// NewProfile builds a profile. Without a table, status words are classified with
// iso7816.ISO7816StatusWords.
func NewProfile(name string, tree *Tree, sws iso7816.StatusWordTable) (*Profile, error) {
	if tree == nil {
		return nil, errors.New("profile needs a file tree")
	}
	if len(sws) == 0 {
		sws = iso7816.ISO7816StatusWords
	}
	return &Profile{Name: name, Tree: tree, StatusWords: sws}, nil
}

// Classify looks sw up in the profile table.
func (p *Profile) Classify(sw iso7816.StatusWord) iso7816.Classification {
	return p.StatusWords.Classify(sw)
}
