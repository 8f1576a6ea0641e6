package heap

import "log"

// AllocFlag modifies the behavior of Alloc.
type AllocFlag uint32

const (
	// AllocZero zeroes the payload before returning it, unless the block
	// came from a freshly reserved region (already zero).
	AllocZero AllocFlag = 1 << iota
	// AllocManager reserves a Manager slot on the returned block; the
	// caller must follow with SetManager.
	AllocManager
)

// GCFlag selects gc's behavior.
type GCFlag uint32

const (
	GCDefault GCFlag = 0
	// GCForce runs a cycle even if workDone has not crossed workQuota.
	GCForce GCFlag = 1 << iota
	// GCNoBlock requests the cycle but returns immediately without
	// waiting for it to finish.
	GCNoBlock
	// GCComplete asks GC to wait for both mark and sweep to finish. A
	// blocking GC call already waits for both, so the flag does not change
	// GC's behavior.
	GCComplete
)

// YieldFlag selects the cooperative safepoint behavior of Yield.
type YieldFlag uint32

const (
	// YieldNormal blocks the calling thread until the mark phase ends.
	YieldNormal YieldFlag = iota
	// YieldSticky marks the thread inactive without blocking; the thread
	// must call ResetYield before touching the heap again.
	YieldSticky
	// YieldComplete blocks until both mark and sweep finish.
	YieldComplete
)

// MemPolicy decides how the heap reacts to MEM_LIMIT.
type MemPolicy int

const (
	// PolicyNoMem returns nil to the caller and otherwise does nothing.
	PolicyNoMem MemPolicy = iota
	// PolicyRestart asks the configured Notifier to perform a graceful
	// restart.
	PolicyRestart
	// PolicyExit asks the configured Notifier to perform a normal exit.
	PolicyExit
)

// Logger is the minimal logging surface heapgc depends on, matching the
// teacher's "no logging framework" texture: a narrow interface any stdlib
// *log.Logger already satisfies.
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type stdLogger struct{ l *log.Logger }

func (s stdLogger) Warnf(format string, args ...interface{})  { s.l.Printf("WARN: "+format, args...) }
func (s stdLogger) Errorf(format string, args ...interface{}) { s.l.Printf("ERROR: "+format, args...) }

func defaultLogger() Logger {
	return stdLogger{l: log.Default()}
}

// NotifierFunc is invoked once per first occurrence of an allocation
// failure cause, mirroring spec.md §7's "(cause, policy, size, used)"
// callback signature.
type NotifierFunc func(cause error, policy MemPolicy, size, used uintptr)

// Config configures a Heap at creation time, following the shape of the
// teacher's allocator.Config/Option functional-options pattern
// (internal/allocator/allocator.go).
type Config struct {
	RegionSize uintptr
	MaxHeap    uintptr
	WarnHeap   uintptr
	CacheHeap  uintptr
	LowHeap    uintptr
	WorkQuota  uint64
	Policy     MemPolicy
	Notifier   NotifierFunc
	Logger     Logger
	RootManager Manager
}

// Option mutates a Config. Mirrors allocator.Option's signature exactly.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		RegionSize: 64 << 20, // 64MiB, matching the teacher's DefaultRegionSize
		MaxHeap:    0,        // 0 == unbounded
		WarnHeap:   0,
		CacheHeap:  4 << 20,
		LowHeap:    1 << 20,
		WorkQuota:  1 << 20,
		Policy:     PolicyNoMem,
		Logger:     defaultLogger(),
	}
}

func WithRegionSize(n uintptr) Option { return func(c *Config) { c.RegionSize = n } }
func WithMaxHeap(n uintptr) Option    { return func(c *Config) { c.MaxHeap = n } }
func WithWarnHeap(n uintptr) Option   { return func(c *Config) { c.WarnHeap = n } }
func WithCacheHeap(n uintptr) Option  { return func(c *Config) { c.CacheHeap = n } }
func WithLowHeap(n uintptr) Option    { return func(c *Config) { c.LowHeap = n } }
func WithWorkQuota(n uint64) Option   { return func(c *Config) { c.WorkQuota = n } }
func WithPolicy(p MemPolicy) Option   { return func(c *Config) { c.Policy = p } }
func WithNotifier(n NotifierFunc) Option { return func(c *Config) { c.Notifier = n } }
func WithLogger(l Logger) Option      { return func(c *Config) { c.Logger = l } }
func WithRootManager(m Manager) Option { return func(c *Config) { c.RootManager = m } }
