package enums

// OutboxDLQErrorReason records why a row left the publish loop for outbox_dlq.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: the broker kept failing until attempts ran out.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the row itself is broken (unknown type, bad payload).
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	// OutboxDLQReasonUnroutable: no publisher exists for the resolved topic.
	OutboxDLQReasonUnroutable OutboxDLQErrorReason = "unroutable"
)

var dlqReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
	OutboxDLQReasonUnroutable,
}

func (r OutboxDLQErrorReason) IsValid() bool { return known(dlqReasons, r) }
