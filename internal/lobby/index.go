// internal/lobby/index.go
package lobby

import (
	"github.com/awesome-cap/hashmap"
	"github.com/google/uuid"
)

// playerIndex maps player ID to the code of the room they sit in. Lookups
// happen from every request path, so it lives outside the registry lock.
type playerIndex struct {
	m *hashmap.HashMap
}

type indexEntry struct {
	playerID uuid.UUID
	code     string
}

func newPlayerIndex() *playerIndex {
	return &playerIndex{m: hashmap.New()}
}

func (p *playerIndex) set(playerID uuid.UUID, code string) {
	p.m.Set(playerID.String(), indexEntry{playerID: playerID, code: code})
}

func (p *playerIndex) get(playerID uuid.UUID) (string, bool) {
	v, ok := p.m.Get(playerID.String())
	if !ok {
		return "", false
	}
	return v.(indexEntry).code, true
}

func (p *playerIndex) del(playerID uuid.UUID) {
	p.m.Del(playerID.String())
}

func (p *playerIndex) foreach(fn func(playerID uuid.UUID, code string)) {
	p.m.Foreach(func(e *hashmap.Entry) {
		ie := e.Value().(indexEntry)
		fn(ie.playerID, ie.code)
	})
}
