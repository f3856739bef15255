package model

// All lists every table in migration order.
func All() []any {
	return []any{
		&Brand{},
		&Market{},
		&Channel{},
		&Audience{},
		&TicketType{},
		&User{},
		&Title{},
		&Campaign{},
		&Ticket{},
		&QACheck{},
		&KV{},
	}
}
