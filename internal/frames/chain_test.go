package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestChainProcess_OrderAndConventions(t *testing.T) {
	c := NewChain()
	in := producerRecord()

	out, err := c.Process(in)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[0].Convention.Equal(Neutral))
	assert.True(t, out[1].Convention.Equal(ConsumerA))
	assert.True(t, out[2].Convention.Equal(ConsumerB))

	for i, conv := range c.Outputs() {
		assert.Equal(t, conv.Name, out[i].Convention.Name)
		assert.Equal(t, in.Header.Seq, out[i].Header.Seq)
	}
}

func TestChainProcess_ConsumersReadNeutralOutput(t *testing.T) {
	c := NewChain()
	in := producerRecord()
	in.AngularVelocity = r3.Vec{X: 1, Y: 2, Z: 3}

	out, err := c.Process(in)
	require.NoError(t, err)

	neutral := r3.Vec{X: 1, Y: -2, Z: 3}
	assert.Equal(t, neutral, out[0].AngularVelocity)
	// consumer_a = (-y, -z, x) of the neutral vector
	assert.Equal(t, r3.Vec{X: 2, Y: -3, Z: 1}, out[1].AngularVelocity)
	// consumer_b = (y, z, x) of the neutral vector
	assert.Equal(t, r3.Vec{X: -2, Y: 3, Z: 1}, out[2].AngularVelocity)

	direct, err := Apply(out[0], NeutralToConsumerA, false)
	require.NoError(t, err)
	assert.Equal(t, direct, out[1])
}

func TestChainProcess_RejectsNonProducerInput(t *testing.T) {
	c := NewChain()
	in := producerRecord()
	in.Convention = Neutral

	out, err := c.Process(in)
	assert.ErrorIs(t, err, ErrConventionMismatch)
	assert.Nil(t, out)
}

func TestNewChainWith_RejectsDisconnectedConsumer(t *testing.T) {
	_, err := NewChainWith(ProducerToNeutral, MustTransform(ConsumerA, ConsumerB))
	assert.ErrorIs(t, err, ErrConventionMismatch)
}
