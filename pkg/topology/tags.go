package topology

// NameTagKey is the tag key holding a resource's display name.
const NameTagKey = "Name"

// NameFromTags returns the value of the first tag keyed [NameTagKey].
// A nil or empty tag set, or one without a Name tag, yields "".
func NameFromTags(tags []Tag) string {
	for _, t := range tags {
		if t.Key == NameTagKey {
			return t.Value
		}
	}
	return ""
}
