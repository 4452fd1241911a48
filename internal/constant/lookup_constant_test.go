package constant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerModulesAreDistinct(t *testing.T) {
	modules := []string{
		LookupLoggerModule,
		SessionLoggerModule,
		IntakeLoggerModule,
		DisplayLoggerModule,
		HandlerLoggerModule,
		BootstrapLoggerModule,
		StationLoggerModule,
		ServerLoggerModule,
		TracerLoggerModule,
		RelayLoggerModule,
		NatsLoggerModule,
	}
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		assert.NotEmpty(t, m)
		assert.False(t, seen[m], "module %q declared twice", m)
		seen[m] = true
	}
}
