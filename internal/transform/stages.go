package transform

// Pipeline returns every stage in composition order. Later stages consume
// the output of earlier ones, so the order is part of the contract.
func Pipeline() []Stage {
	return []Stage{
		Typography{},
		Colors{},
		Spacing{},
		Animations{},
		Gradients{},
		States{},
		Shadows{},
	}
}
