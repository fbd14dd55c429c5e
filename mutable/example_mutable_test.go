package mutable_test

import (
	"fmt"

	"pipelined.dev/wavpipe/mutable"
)

type gain struct {
	mutable.Context
	factor float64
}

func (g *gain) setFactor(value float64) mutable.Mutation {
	return g.Context.Mutate(func() error {
		g.factor = value
		return nil
	})
}

func Example_mutation() {
	// create new mutable component
	component := &gain{
		Context: mutable.Mutable(),
		factor:  1,
	}
	fmt.Println(component.factor)

	// create new mutation
	mutation := component.setFactor(0.5)
	fmt.Println(component.factor)

	// apply mutation
	_ = mutation.Apply()
	fmt.Println(component.factor)

	// Output:
	// 1
	// 1
	// 0.5
}
