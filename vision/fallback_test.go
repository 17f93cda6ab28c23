package vision

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFromMetadataKeywords(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		fileName  string
		wantTitle string
		generic   bool
	}{
		{
			name:      "pothole",
			fileName:  "IMG_pothole_42.jpg",
			wantTitle: "Road Damage - Pothole/Crack Detected",
		},
		{
			name:      "crack",
			fileName:  "big-CRACK-on-main-road.png",
			wantTitle: "Road Damage - Pothole/Crack Detected",
		},
		{
			name:      "garbage",
			fileName:  "garbage_pile.jpeg",
			wantTitle: "Waste Management Issue - Garbage Accumulation",
		},
		{
			name:      "streetlight needs both words",
			fileName:  "street_light_broken.jpg",
			wantTitle: "Street Lighting Issue",
		},
		{
			name:      "street alone is generic road",
			fileName:  "street_damage.jpg",
			wantTitle: "Road Infrastructure Issue",
		},
		{
			name:      "drainage",
			fileName:  "flooded-junction.jpg",
			wantTitle: "Drainage System Problem",
		},
		{
			name:      "tree",
			fileName:  "fallen_branch.jpg",
			wantTitle: "Tree/Vegetation Hazard",
		},
		{
			name:      "traffic sign",
			fileName:  "bent_traffic_sign.jpg",
			wantTitle: "Traffic Infrastructure Issue",
		},
		{
			name:      "no keywords",
			fileName:  "20250314_103000.jpg",
			wantTitle: "Civic Infrastructure Issue Reported",
			generic:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyFromMetadata(tt.fileName, 2048, now)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantTitle, result.Title)
			assert.Equal(t, tt.generic, result.IsGeneric)
			assert.NotEmpty(t, result.Description)
		})
	}
}

func TestClassifyFromMetadataOrderSensitive(t *testing.T) {
	// A filename matching multiple rules resolves to the first one: the
	// pothole rule beats the garbage rule.
	result := ClassifyFromMetadata("pothole_next_to_garbage.jpg", 1024, time.Now())
	assert.Equal(t, "Road Damage - Pothole/Crack Detected", result.Title)
	assert.False(t, result.IsGeneric)
}

func TestClassifyFromMetadataDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	first := ClassifyFromMetadata("drain_block.jpg", 4096, now)
	second := ClassifyFromMetadata("drain_block.jpg", 4096, now)
	assert.Equal(t, first, second)
}

func TestClassifyFromMetadataExtensionStripped(t *testing.T) {
	// The keyword must come from the name, not the extension: ".treeimg" is
	// an extension and must not trigger the tree rule.
	result := ClassifyFromMetadata("evidence.treeimg", 1024, time.Now())
	assert.True(t, result.IsGeneric)
}

func TestClassifyFromMetadataGenericDescription(t *testing.T) {
	result := ClassifyFromMetadata("unknown.jpg", 2560, time.Now())

	assert.True(t, result.IsGeneric)
	assert.Contains(t, result.Description, "Manual review required")
	assert.Contains(t, result.Description, "unknown.jpg")
	assert.Contains(t, result.Description, "2.50 KB")
	assert.Equal(t, "To be assessed", result.Severity)
}

func TestClassifyFromMetadataSpecificDescription(t *testing.T) {
	result := ClassifyFromMetadata("pothole.jpg", 1024, time.Now())

	assert.False(t, result.IsGeneric)
	assert.Contains(t, result.Description, "**Severity:** High - Safety hazard")
	assert.Contains(t, result.Description, "**Recommended Action:** Road repair and resurfacing required")
	assert.Contains(t, result.Description, "pothole.jpg (1.00 KB)")
	assert.False(t, strings.Contains(result.Description, "Manual review required"))
}
