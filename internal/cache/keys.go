package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func JobEventsChannel(jobID uuid.UUID) string {
	return fmt.Sprintf("events:job:%s", jobID)
}

func CompletionsChannel() string {
	return "events:completions"
}
