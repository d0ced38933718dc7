package webserver

// FetchStatus is the lifecycle stage of a backend fetch
type FetchStatus int

const (
	FetchIdle FetchStatus = iota
	FetchLoading
	FetchSuccess
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchLoading:
		return "loading"
	case FetchSuccess:
		return "success"
	case FetchFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Source says where successful data came from
type Source string

const (
	SourceBackend  Source = "backend"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// FetchState is what a view knows about one piece of remote data. Only the
// fields belonging to Status are meaningful: Data and Source on success,
// Err on failure.
type FetchState[T any] struct {
	Status FetchStatus
	Data   T
	Source Source
	Err    error
}

// Idle is the state before anything was requested
func Idle[T any]() FetchState[T] {
	return FetchState[T]{Status: FetchIdle}
}

// Loading is rendered as a placeholder while htmx fetches the real content
func Loading[T any]() FetchState[T] {
	return FetchState[T]{Status: FetchLoading}
}

// Succeeded holds data and its origin
func Succeeded[T any](data T, source Source) FetchState[T] {
	return FetchState[T]{Status: FetchSuccess, Data: data, Source: source}
}

// Failed holds the error that ended the fetch
func Failed[T any](err error) FetchState[T] {
	return FetchState[T]{Status: FetchFailed, Err: err}
}

func (f FetchState[T]) IsIdle() bool    { return f.Status == FetchIdle }
func (f FetchState[T]) IsLoading() bool { return f.Status == FetchLoading }
func (f FetchState[T]) IsSuccess() bool { return f.Status == FetchSuccess }
func (f FetchState[T]) IsFailed() bool  { return f.Status == FetchFailed }

// IsFallback reports whether the data is a bundled sample shown in place
// of the backend's
func (f FetchState[T]) IsFallback() bool {
	return f.Status == FetchSuccess && f.Source == SourceFallback
}
