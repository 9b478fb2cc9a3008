package core

// partition groups the connections that declared the same timetable.
type partition struct {
	timetable string
	conns     map[Conn]struct{}
}

func newPartition(timetableID string) *partition {
	return &partition{
		timetable: timetableID,
		conns:     make(map[Conn]struct{}),
	}
}

// add inserts a connection. Returns true if newly added.
func (p *partition) add(c Conn) bool {
	if _, exists := p.conns[c]; exists {
		return false
	}
	p.conns[c] = struct{}{}
	return true
}

// remove deletes a connection. Returns true if removed.
func (p *partition) remove(c Conn) bool {
	if _, exists := p.conns[c]; !exists {
		return false
	}
	delete(p.conns, c)
	return true
}

func (p *partition) appendTo(dst []Conn) []Conn {
	for c := range p.conns {
		dst = append(dst, c)
	}
	return dst
}

func (p *partition) empty() bool {
	return len(p.conns) == 0
}
