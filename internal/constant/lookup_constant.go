package constant

const (
	LookupEndpointPath    = "/ExternalCalls/buscarCodigoBarras/"
	LookupContentType     = "application/json"
	LookupMaxBodyBytes    = 1 << 20
	LookupDefaultBase     = "http://server/index.php"
	LookupTracerName      = "barcode-lookup/lookup"
	LookupSpanName        = "lookup.Lookup"
	LookupLoggerModule    = "LookupClient"
	SessionLoggerModule   = "ScanSession"
	IntakeLoggerModule    = "ScanIntake"
	DisplayLoggerModule   = "DisplayHub"
	HandlerLoggerModule   = "DisplayHandler"
	BootstrapLoggerModule = "Bootstrap"
	StationLoggerModule   = "Station"
	ServerLoggerModule    = "Server"
	TracerLoggerModule    = "Tracer"
	RelayLoggerModule     = "Relay"
	NatsLoggerModule      = "NatsBus"
)

const (
	TopicScanCaptured       = "scan.captured"
	SubjectScanCaptured     = "events.scan.captured"
	ScanConsumerDurable     = "station-scan-intake"
	DisplayRedisChannel     = "station_display"
	DisplayFrameTypeSession = "session"
	DisplayFrameTypeTorch   = "torch"
	SimulatedDefaultCode    = "pep"
)
