package strategy

import "github.com/DoyleJ11/table-balancer/internal/seating"

type dealer struct {
	tables []Inventory
	next   []int
	res    Result
}

func newDealer(tables []Inventory, n int) *dealer {
	return &dealer{
		tables: tables,
		next:   make([]int, len(tables)),
		res:    Result{Placements: make([]Placement, 0, n)},
	}
}

func (d *dealer) hasRoom(idx int) bool { return d.next[idx] < len(d.tables[idx].Seats) }

func (d *dealer) place(idx int, p seating.Participant) {
	inv := d.tables[idx]
	d.res.Placements = append(d.res.Placements, Placement{
		ParticipantID: p.ID,
		TableID:       inv.TableID,
		TableNumber:   inv.TableNumber,
		Seat:          inv.Seats[d.next[idx]],
	})
	d.next[idx]++
}

// roundRobin deals one seat per table in table order, skipping full tables.
func roundRobin(order []seating.Participant, tables []Inventory) Result {
	d := newDealer(tables, len(order))
	cur := 0
	for i, p := range order {
		idx, ok := d.nextWithRoom(cur)
		if !ok {
			d.res.Unplaced = append(d.res.Unplaced, order[i:]...)
			break
		}
		d.place(idx, p)
		cur = idx + 1
	}
	return d.res
}

func (d *dealer) nextWithRoom(start int) (int, bool) {
	n := len(d.tables)
	for k := 0; k < n; k++ {
		idx := (start + k) % n
		if d.hasRoom(idx) {
			return idx, true
		}
	}
	return 0, false
}

// serpentine deals passes of one seat per table, alternating 1→N and N→1.
func serpentine(order []seating.Participant, tables []Inventory) Result {
	d := newDealer(tables, len(order))
	n := len(tables)
	forward := true
	i := 0
	for i < len(order) {
		placed := false
		for k := 0; k < n && i < len(order); k++ {
			idx := k
			if !forward {
				idx = n - 1 - k
			}
			if !d.hasRoom(idx) {
				continue
			}
			d.place(idx, order[i])
			i++
			placed = true
		}
		if !placed {
			d.res.Unplaced = append(d.res.Unplaced, order[i:]...)
			break
		}
		forward = !forward
	}
	return d.res
}
