package records

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&CartLine{},
		&Order{},
		&OrderLine{},
		&Payment{},
		&PaymentRefund{},
	}
}
