package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"
)

// RandSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// WeightedDrawer picks winners without replacement, proportionally to entry weight.
type WeightedDrawer struct {
	rnd RandSource
}

// NewWeightedDrawer creates a drawer. A nil source gets a math/rand generator
// seeded from crypto/rand.
func NewWeightedDrawer(rnd RandSource) *WeightedDrawer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(newSeed()))
	}
	return &WeightedDrawer{rnd: rnd}
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

type ticketRange struct {
	participantID string
	weight        int
}

// Draw returns up to count distinct participants in the order they were drawn.
//
// Every participant holds weight tickets in one pool. Each round picks a uniformly random
// ticket, appends its holder to the result and removes all of that holder's tickets, so nobody
// wins twice. Participants with weight <= 0 hold no tickets and cannot win. Pool order is by
// participant id, which keeps draws reproducible for a seeded source.
func (d *WeightedDrawer) Draw(entries map[string]int, count int) []string {
	pool := make([]ticketRange, 0, len(entries))
	total := 0
	for id, w := range entries {
		if w <= 0 {
			continue
		}
		pool = append(pool, ticketRange{participantID: id, weight: w})
		total += w
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].participantID < pool[j].participantID })

	if count > len(pool) {
		count = len(pool)
	}
	winners := make([]string, 0, max(count, 0))
	for len(winners) < count {
		ticket := d.rnd.Intn(total)
		idx := 0
		for ; idx < len(pool); idx++ {
			if ticket < pool[idx].weight {
				break
			}
			ticket -= pool[idx].weight
		}
		winners = append(winners, pool[idx].participantID)
		total -= pool[idx].weight
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return winners
}

// DrawOne returns a single participant, or false when nobody holds a ticket.
func (d *WeightedDrawer) DrawOne(entries map[string]int) (string, bool) {
	winners := d.Draw(entries, 1)
	if len(winners) == 0 {
		return "", false
	}
	return winners[0], true
}
