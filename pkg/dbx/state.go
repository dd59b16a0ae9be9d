package dbx

// ConnectionState is the lifecycle state of the managed connection.
//
// Transitions:
//
//	Uninitialized --connect ok--------------------> Online
//	Uninitialized --connect failed----------------> Offline
//	Online        --probe failed, reconnect failed-> Offline
//	Offline       --reconnect ok------------------> Online
//	any           --shutdown----------------------> Offline
type ConnectionState int

const (
	StateUninitialized ConnectionState = iota
	StateOnline
	StateOffline
)

func (s ConnectionState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateOnline:
		return "ONLINE"
	case StateOffline:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// ConnectionStatus is a diagnostic view of the connection. It is not meant for control flow.
type ConnectionStatus string

const (
	StatusOffline        ConnectionStatus = "OFFLINE"
	StatusNotInitialized ConnectionStatus = "NOT_INITIALIZED"
	StatusOnline         ConnectionStatus = "ONLINE"
	StatusUnhealthy      ConnectionStatus = "UNHEALTHY"
)

// Description returns a human readable explanation of the status.
func (s ConnectionStatus) Description() string {
	switch s {
	case StatusOffline:
		return "OFFLINE - Database unavailable"
	case StatusNotInitialized:
		return "NOT_INITIALIZED - Database not connected"
	case StatusOnline:
		return "ONLINE - Database connected and healthy"
	case StatusUnhealthy:
		return "UNHEALTHY - Connection exists but may be stale"
	default:
		return string(s)
	}
}
