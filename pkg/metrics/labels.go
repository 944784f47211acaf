package metrics

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
