package frames

import "fmt"

// Chain is the inertial fan-out: one Producer record becomes a Neutral
// record, and the Neutral record is re-expressed for each consumer.
type Chain struct {
	toNeutral Transform
	consumers []Transform
}

// NewChain returns the Producer → Neutral → {ConsumerA, ConsumerB} chain.
func NewChain() *Chain {
	c, err := NewChainWith(ProducerToNeutral, NeutralToConsumerA, NeutralToConsumerB)
	if err != nil {
		panic(err)
	}
	return c
}

// NewChainWith builds a chain from an entry transform and any number of
// consumer transforms, all of which must start at the entry's destination.
func NewChainWith(entry Transform, consumers ...Transform) (*Chain, error) {
	for _, t := range consumers {
		if !t.Source().Equal(entry.Destination()) {
			return nil, fmt.Errorf("%w: consumer transform %s does not start at %s",
				ErrConventionMismatch, t, entry.Destination())
		}
	}
	return &Chain{toNeutral: entry, consumers: consumers}, nil
}

// Outputs lists the destination conventions in emission order.
func (c *Chain) Outputs() []Convention {
	out := make([]Convention, 0, 1+len(c.consumers))
	out = append(out, c.toNeutral.Destination())
	for _, t := range c.consumers {
		out = append(out, t.Destination())
	}
	return out
}

// Process returns the entry output followed by one output per consumer, in
// that order. Consumer outputs are derived from the entry output, never from
// rec. On error nothing is returned.
func (c *Chain) Process(rec InertialRecord) ([]InertialRecord, error) {
	entryLeft := c.toNeutral.Source().Handedness() == LeftHanded
	neutral, err := Apply(rec, c.toNeutral, entryLeft)
	if err != nil {
		return nil, err
	}

	out := make([]InertialRecord, 0, 1+len(c.consumers))
	out = append(out, neutral)
	for _, t := range c.consumers {
		r, err := Apply(neutral, t, t.Source().Handedness() == LeftHanded)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	debugf("chain: seq=%d %s -> %d outputs", rec.Header.Seq, rec.Convention, len(out))
	return out, nil
}
