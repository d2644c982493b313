package pricing

import (
	"context"

	"github.com/GoCodeAlone/geuse/internal/awsclient"
)

func nilFactory() *awsclient.Factory {
	return awsclient.NewFactory()
}

func contextBackground() context.Context {
	return context.Background()
}
