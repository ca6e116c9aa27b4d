package audit

// Kafka topics the outbox relay publishes to, one per category so
// consumers can apply different retention and alerting.
const (
	TopicCompliance = "idswyft.audit.compliance"
	TopicSecurity   = "idswyft.audit.security"
	TopicOps        = "idswyft.audit.ops"
)

// TopicFor maps an event category to its Kafka topic.
func TopicFor(category EventCategory) string {
	switch category {
	case CategoryCompliance:
		return TopicCompliance
	case CategorySecurity:
		return TopicSecurity
	default:
		return TopicOps
	}
}
