package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// IDGenerator hands out snowflake ids for a single node. Safe for concurrent use.
type IDGenerator struct {
	once sync.Once
	node *snowflake.Node
	err  error
	id   int64
}

// NewIDGenerator returns a generator bound to nodeID (0..1023). The node is
// created lazily so a bad node id surfaces on first use.
func NewIDGenerator(nodeID int64) *IDGenerator {
	return &IDGenerator{id: nodeID}
}

// Next returns the next snowflake id.
func (g *IDGenerator) Next() (int64, error) {
	g.once.Do(func() {
		g.node, g.err = snowflake.NewNode(g.id)
	})
	if g.err != nil {
		return 0, g.err
	}
	return g.node.Generate().Int64(), nil
}
