/*
Package httpserver runs the sentiment API: the authenticated analysis endpoint
plus health and drain endpoints, with an optional pprof mount and a separate
Prometheus listener.

API Endpoints:

  - POST /analyze - Score a batch of comments (client envelope required)
  - GET /api/public/trust - Public trust material (root, namespace, server certificate)
  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Mark server as not ready
  - GET /undrain - Mark server as ready

Example usage:

	handler := sentiment.NewHandler(builder, validator, analysis.NewAnalyzer(nil), logger)

	config := &httpserver.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":9090",
		Log:                      logger,
		DrainDuration:            45 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}

	pki, err := pkihandler.NewHandler(trustCfg, logger)
	if err != nil {
		log.Fatalf("Failed to prepare trust info: %v", err)
	}

	server, err := httpserver.New(config, handler, pki)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
