// Package esm provides a native Go client for the McAfee Enterprise Security
// Manager (ESM) HTTP API.
//
// # Features
//
//   - Service-based access to events, alarms, datasources and watchlists
//   - Both appliance dialects: the JSON API and the legacy private API
//   - Lazy login with re-login on session expiry
//   - Time-range splitting for queries that hit the appliance row limit
//   - Searchable, renderable result collections
//
// # Quick Start
//
//	cfg, err := esm.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := esm.NewClient(esm.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	q := client.NewQuery().
//	    WithTimeRange(esm.LastHour).
//	    WithFilter("SrcIP", "10.1.1.1")
//
//	events, err := client.Events.Query(ctx, q)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, _ := events.Text(esm.TextOptions{Fields: []string{"Alert.LastTime", "Rule.msg"}})
//	fmt.Println(text)
//
// # Query Splitting
//
// The appliance caps the rows of a single query. When a query returns exactly
// its limit the result may be truncated, so the time range is split into
// Performance.Slots equal windows which are queried again, concurrently when
// the query is asynchronous, and concatenated in window order. Splitting
// recurses until Performance.MaxQueryDepth levels are used; the last level
// returns what it got and logs a warning.
//
// # Error Handling
//
// The package uses typed errors that can be inspected with errors.As:
//
//	_, err := client.Events.Get(ctx, id)
//	if err != nil {
//	    var authErr *esm.AuthenticationError
//	    if errors.As(err, &authErr) {
//	        // Credentials rejected or session could not be restored
//	    }
//	    var applianceErr *esm.ApplianceError
//	    if errors.As(err, &applianceErr) {
//	        fmt.Println(applianceErr.Method, applianceErr.Message)
//	    }
//	}
//
// # Pagination
//
// Alarms can also be paged lazily with an iterator:
//
//	for alarm, err := range client.Alarms.All(ctx, q, esm.AlarmsUnacknowledged) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(alarm.String("alarmName"))
//	}
package esm
