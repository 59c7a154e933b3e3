package shader

import (
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
)

func TestStageConstructors(t *testing.T) {
	assert.Equal(t, Stage{Type: gl.GEOMETRY_SHADER, Source: "g"}, Geometry("g"))
	assert.Equal(t, "vertex", StageName(Vertex("").Type))
	assert.Equal(t, "geometry", StageName(Geometry("").Type))
	assert.Equal(t, "fragment", StageName(Fragment("").Type))
	assert.Equal(t, "stage(0x1)", StageName(1))
}
