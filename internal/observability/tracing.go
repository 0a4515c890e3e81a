package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span the store emits.
const TracerName = "github.com/dshills/trailstore"

// Tracer starts spans through the global provider. Without an installed
// provider the spans are no-ops.
var Tracer trace.Tracer = otel.Tracer(TracerName)
