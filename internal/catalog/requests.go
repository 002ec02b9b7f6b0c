package catalog

import (
	"net/http"
	"net/url"
	"strconv"
)

// Request names understood by Default.
const (
	Login             = "login"
	Logout            = "logout"
	BuildStamp        = "build_stamp"
	ESMTime           = "get_esm_time"
	EventQuery        = "event_query"
	QueryStatus       = "query_status"
	QueryResults      = "query_results"
	EventDetails      = "get_event"
	AddEventNote      = "add_event_note"
	Alarms            = "get_alarms"
	AlarmDetails      = "get_alarm_details"
	AckAlarms         = "ack_alarms"
	UnackAlarms       = "unack_alarms"
	DeleteAlarms      = "delete_alarms"
	DeviceTree        = "get_devtree"
	DatasourceDetails = "ds_details"
	AddDatasource     = "add_ds"
	DeleteDatasource  = "del_ds"
	Watchlists        = "get_watchlists"
	WatchlistDetails  = "get_watchlist_details"
	AddWatchlistVals  = "add_watchlist_values"
	DelWatchlistVals  = "remove_watchlist_values"
	ReadFile          = "get_rfile"
	DeleteFile        = "del_rfile"
)

// APIVersionParam is the parameter carrying the session API version flag.
// Builders whose body shape changed between appliance releases branch on it.
const APIVersionParam = "api_version"

// Default returns a catalog populated with every known ESM request.
func Default() *Catalog {
	c := New()

	c.Register(Login, func(p Params) (Call, error) {
		user, err := p.String("username")
		if err != nil {
			return Call{}, err
		}
		pass, err := p.String("password")
		if err != nil {
			return Call{}, err
		}
		return Call{Method: http.MethodPost, Endpoint: "login", Body: map[string]any{
			"username": user,
			"password": pass,
			"locale":   "en_US",
			"os":       "Win32",
		}}, nil
	})
	c.Register(Logout, static(http.MethodDelete, "logout"))
	c.Register(BuildStamp, static(http.MethodPost, "essmgtGetBuildStamp"))
	c.Register(ESMTime, static(http.MethodPost, "essmgtGetESSTime"))

	c.Register(EventQuery, func(p Params) (Call, error) {
		cfg, err := p.Value("config")
		if err != nil {
			return Call{}, err
		}
		return Call{
			Endpoint: "qryExecuteDetail?type=EVENT&reverse=false",
			Body:     map[string]any{"config": cfg},
		}, nil
	})
	c.Register(QueryStatus, func(p Params) (Call, error) {
		id, err := resultID(p)
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "qryGetStatus", Body: map[string]any{"resultID": id}}, nil
	})
	c.Register(QueryResults, func(p Params) (Call, error) {
		id, err := resultID(p)
		if err != nil {
			return Call{}, err
		}
		rows, err := p.Int("num_rows")
		if err != nil {
			return Call{}, err
		}
		q := url.Values{}
		q.Set("startPos", strconv.Itoa(p.IntOr("start_pos", 0)))
		q.Set("numRows", strconv.Itoa(rows))
		q.Set("reverse", "false")
		return Call{Endpoint: "qryGetResults?" + q.Encode(), Body: map[string]any{"resultID": id}}, nil
	})
	c.Register(EventDetails, func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "ipsGetAlertData", Body: map[string]any{"id": map[string]any{"value": id}}}, nil
	})
	c.Register(AddEventNote, func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		note, err := p.String("note")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "ipsAddAlertNote", Body: map[string]any{
			"id":      map[string]any{"value": id},
			"content": note,
		}}, nil
	})

	c.Register(Alarms, func(p Params) (Call, error) {
		q := url.Values{}
		q.Set("triggeredTimeRange", p.StringOr("time_range", "CUSTOM"))
		if start := p.StringOr("start_time", ""); start != "" {
			q.Set("customStart", start)
		}
		if end := p.StringOr("end_time", ""); end != "" {
			q.Set("customEnd", end)
		}
		q.Set("status", p.StringOr("status", ""))
		q.Set("pageSize", strconv.Itoa(p.IntOr("page_size", 500)))
		q.Set("pageNumber", strconv.Itoa(p.IntOr("page_number", 1)))
		return Call{Endpoint: "alarmGetTriggeredAlarms?" + q.Encode()}, nil
	})
	c.Register(AlarmDetails, func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		var body map[string]any
		if p.IntOr(APIVersionParam, 2) == 1 {
			body = map[string]any{"id": map[string]any{"value": id}}
		} else {
			body = map[string]any{"id": id}
		}
		return Call{Endpoint: "notifyGetTriggeredNotificationDetail", Body: body}, nil
	})
	c.Register(AckAlarms, alarmBatch("alarmAcknowledgeTriggeredAlarm"))
	c.Register(UnackAlarms, alarmBatch("alarmUnacknowledgeTriggeredAlarm"))
	c.Register(DeleteAlarms, alarmBatch("alarmDeleteTriggeredAlarm"))

	c.Register(DeviceTree, func(Params) (Call, error) {
		return Call{Endpoint: "GRP_GETVIRTUALGROUPIPSLISTDATA", Body: []Pair{
			{Key: "ITEMS", Value: "#{DC1 + DC2}"},
			{Key: "DID", Value: "1"},
			{Key: "HIDEDEL", Value: "1"},
		}}, nil
	})
	c.Register(DatasourceDetails, func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "dsGetDataSourceDetail", Body: map[string]any{
			"datasourceId": map[string]any{"id": id},
		}}, nil
	})
	c.Register(AddDatasource, func(p Params) (Call, error) {
		parent, err := p.String("parent_id")
		if err != nil {
			return Call{}, err
		}
		ds, err := p.Value("datasource")
		if err != nil {
			return Call{}, err
		}
		if p.IntOr(APIVersionParam, 2) == 1 {
			return Call{Endpoint: "dsAddDataSource", Body: map[string]any{
				"receiverId": parent,
				"datasource": ds,
			}}, nil
		}
		return Call{Endpoint: "dsAddDataSources", Body: map[string]any{
			"receiverId":  map[string]any{"value": parent},
			"datasources": []any{ds},
		}}, nil
	})
	c.Register(DeleteDatasource, func(p Params) (Call, error) {
		parent, err := p.String("parent_id")
		if err != nil {
			return Call{}, err
		}
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "dsDeleteDataSource", Body: map[string]any{
			"receiverId":   map[string]any{"id": parent},
			"datasourceId": map[string]any{"id": id},
		}}, nil
	})

	c.Register(Watchlists, static(http.MethodPost,
		"sysGetWatchlists?hidden=false&dynamic=false&writeOnly=false&indexedOnly=false"))
	c.Register(WatchlistDetails, func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "sysGetWatchlistDetails", Body: map[string]any{"id": id}}, nil
	})
	c.Register(AddWatchlistVals, watchlistValues("sysAddWatchlistValues"))
	c.Register(DelWatchlistVals, watchlistValues("sysRemoveWatchlistValues"))

	c.Register(ReadFile, func(p Params) (Call, error) {
		name, err := p.String("file")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "MISC_READFILE", Body: []Pair{
			{Key: "FNAME", Value: name},
			{Key: "SPLIT", Value: "false"},
			{Key: "OFFSET", Value: strconv.Itoa(p.IntOr("offset", 0))},
			{Key: "NBYTES", Value: strconv.Itoa(p.IntOr("nbytes", 0))},
		}}, nil
	})
	c.Register(DeleteFile, func(p Params) (Call, error) {
		name, err := p.String("file")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: "ESSMGT_DELETEFILE", Body: []Pair{{Key: "FN", Value: name}}}, nil
	})

	return c
}

func static(method, endpoint string) Builder {
	return func(Params) (Call, error) {
		return Call{Method: method, Endpoint: endpoint}, nil
	}
}

// resultID passes the query result id through as-is, bare or already
// wrapped as {"value": id} by the appliance.
func resultID(p Params) (any, error) {
	v, err := p.Value("result_id")
	if err != nil {
		return nil, err
	}
	return v, nil
}

func alarmBatch(endpoint string) Builder {
	return func(p Params) (Call, error) {
		ids, err := p.Strings("ids")
		if err != nil {
			return Call{}, err
		}
		var body map[string]any
		if p.IntOr(APIVersionParam, 2) == 1 {
			body = map[string]any{"triggeredIds": map[string]any{"alarmIdList": ids}}
		} else {
			body = map[string]any{"triggeredIds": ids}
		}
		return Call{Endpoint: endpoint, Body: body}, nil
	}
}

func watchlistValues(endpoint string) Builder {
	return func(p Params) (Call, error) {
		id, err := p.String("id")
		if err != nil {
			return Call{}, err
		}
		values, err := p.Strings("values")
		if err != nil {
			return Call{}, err
		}
		return Call{Endpoint: endpoint, Body: map[string]any{
			"watchlist": id,
			"values":    values,
		}}, nil
	}
}
