package model

// Artifact is a file produced by a stage, tagged with the sample it derives from.
// Aggregate outputs carry an empty Sample.
type Artifact struct {
	Sample string
	Path   string
}

// Manifest is the explicit list of files a stage produced.
type Manifest []Artifact

func (m Manifest) Paths() []string {
	paths := make([]string, len(m))
	for i, a := range m {
		paths[i] = a.Path
	}

	return paths
}

// Samples returns the distinct non empty sample identifiers in manifest order.
func (m Manifest) Samples() []string {
	seen := make(map[string]struct{}, len(m))
	samples := []string{}

	for _, a := range m {
		if a.Sample == "" {
			continue
		}

		if _, ok := seen[a.Sample]; ok {
			continue
		}

		seen[a.Sample] = struct{}{}
		samples = append(samples, a.Sample)
	}

	return samples
}
