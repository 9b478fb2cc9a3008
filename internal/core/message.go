package core

// Message is a relayed text payload together with the timetable it was sent for.
// The payload is opaque to the core and is never parsed.
type Message struct {
	Timetable string
	Payload   string
}

// Text returns the wire form delivered to every recipient.
func (m Message) Text() string {
	return FormatMessage(m.Timetable, m.Payload)
}

// FormatMessage prefixes a payload with its timetable id: "<timetable_id>: <payload>".
func FormatMessage(timetableID, payload string) string {
	return timetableID + ": " + payload
}
