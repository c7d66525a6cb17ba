// internal/ocr/parse.go
package ocr

import (
	"strings"

	"docverify/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// parseKeyValuePairs walks KEY_VALUE_SET blocks and pairs each key with
// its linked value. The pair's confidence is the lower of the two sides.
func parseKeyValuePairs(blocks []types.Block) map[string]models.ExtractedField {
	blockMap := map[string]types.Block{}
	var keys []types.Block
	values := map[string]types.Block{}

	for _, b := range blocks {
		if b.Id != nil {
			blockMap[*b.Id] = b
		}
		if b.BlockType != types.BlockTypeKeyValueSet {
			continue
		}
		if hasEntityType(b, types.EntityTypeKey) {
			keys = append(keys, b)
		} else if hasEntityType(b, types.EntityTypeValue) && b.Id != nil {
			values[*b.Id] = b
		}
	}

	fields := map[string]models.ExtractedField{}
	for _, keyBlock := range keys {
		valueID := relationshipID(keyBlock, types.RelationshipTypeValue)
		if valueID == "" {
			continue
		}
		valueBlock, ok := values[valueID]
		if !ok {
			continue
		}

		keyText := childText(keyBlock, blockMap)
		valueText := childText(valueBlock, blockMap)
		if keyText == "" || valueText == "" {
			continue
		}

		conf := float64(aws.ToFloat32(keyBlock.Confidence))
		if vc := float64(aws.ToFloat32(valueBlock.Confidence)); vc < conf {
			conf = vc
		}

		name := normalizeFieldName(keyText)
		if existing, found := fields[name]; !found || conf > existing.Confidence {
			fields[name] = models.ExtractedField{Value: valueText, Confidence: conf}
		}
	}
	return fields
}

// parseQueryResults pairs each QUERY block with its ANSWER block, keyed
// by the query alias.
func parseQueryResults(blocks []types.Block) map[string]models.ExtractedField {
	blockMap := map[string]types.Block{}
	for _, b := range blocks {
		if b.Id != nil {
			blockMap[*b.Id] = b
		}
	}

	fields := map[string]models.ExtractedField{}
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeQuery || b.Query == nil {
			continue
		}
		alias := aws.ToString(b.Query.Alias)
		if alias == "" {
			alias = normalizeFieldName(aws.ToString(b.Query.Text))
		}

		answerID := relationshipID(b, types.RelationshipTypeAnswer)
		if answerID == "" {
			continue
		}
		answer, ok := blockMap[answerID]
		if !ok || answer.BlockType != types.BlockTypeQueryResult {
			continue
		}

		value := strings.TrimSpace(aws.ToString(answer.Text))
		if value == "" {
			continue
		}
		conf := float64(aws.ToFloat32(answer.Confidence))
		if existing, found := fields[alias]; !found || conf > existing.Confidence {
			fields[alias] = models.ExtractedField{Value: value, Confidence: conf}
		}
	}
	return fields
}

// extractLines joins all LINE blocks in reading order.
func extractLines(blocks []types.Block) string {
	var lines []string
	for _, b := range blocks {
		if b.BlockType == types.BlockTypeLine && b.Text != nil {
			lines = append(lines, *b.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// averageConfidence is the mean confidence across all scored blocks.
func averageConfidence(blocks []types.Block) float64 {
	var sum float64
	var count int
	for _, b := range blocks {
		if b.Confidence != nil {
			sum += float64(*b.Confidence)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func hasEntityType(b types.Block, et types.EntityType) bool {
	for _, t := range b.EntityTypes {
		if t == et {
			return true
		}
	}
	return false
}

func relationshipID(b types.Block, rt types.RelationshipType) string {
	for _, r := range b.Relationships {
		if r.Type == rt && len(r.Ids) > 0 {
			return r.Ids[0]
		}
	}
	return ""
}

// childText concatenates the WORD children of a block.
func childText(b types.Block, blockMap map[string]types.Block) string {
	var words []string
	for _, r := range b.Relationships {
		if r.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range r.Ids {
			child, ok := blockMap[id]
			if ok && child.BlockType == types.BlockTypeWord && child.Text != nil {
				words = append(words, *child.Text)
			}
		}
	}
	return strings.Join(words, " ")
}

// normalizeFieldName turns a printed label into a camelCase field name.
func normalizeFieldName(label string) string {
	label = strings.TrimRight(strings.TrimSpace(label), ":")
	parts := strings.Fields(label)
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range parts {
		p = strings.ToLower(p)
		if i > 0 {
			p = strings.ToUpper(p[:1]) + p[1:]
		}
		sb.WriteString(p)
	}
	return sb.String()
}
