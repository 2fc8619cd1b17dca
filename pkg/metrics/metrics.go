package metrics

const namespace = "storefront"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
