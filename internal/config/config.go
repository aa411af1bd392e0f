package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Sheetcal/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Sheetcal"
	AppCommand        = "go-sheetcal"
	AppID             = "com.github.tartampluch.go-sheetcal"
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "app.log"
	SettingsFileName  = "config.yaml"
	SettingsTempGlob  = ".go-sheetcal-config-*.tmp"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeAborted = 2
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and the settings file.
	FilePermUserRW fs.FileMode = 0600

	// FilePermShared represents -rw-r--r--, used for generated calendars.
	FilePermShared fs.FileMode = 0644

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagDebug       = "debug"
	FlagConfig      = "config"
	FlagSheet       = "sheet"
	FlagColumn      = "column"
	FlagYear        = "year"
	FlagPrefix      = "prefix"
	FlagDuration    = "duration"
	FlagCalendar    = "calendar"
	FlagSelect      = "select"
	FlagOutput      = "output"
	FlagOnBad       = "on-bad-record"
	FlagDialog      = "dialog"
	FlagAlarm       = "alarm"
	FlagTimezone    = "timezone"
	FlagLanguage    = "lang"
	FlagPort        = "port"
	FlagRefresh     = "refresh"
	FlagCalName     = "calendar-name"
	FlagSaveConfig  = "save"
	FlagDescDebug   = "Enable debug logging"
	FlagDescConfig  = "Path to the YAML settings file"
	FlagDescSheet   = "Sheet to read (default: first sheet)"
	FlagDescColumn  = "Column role mapping, e.g. Date=A or Start=1 (repeatable)"
	FlagDescYear    = "Default year for dates without one (0 = current year)"
	FlagDescPrefix  = "Prefix added to every event title"
	FlagDescDur     = "Default event duration as H or H:MM"
	FlagDescCal     = "Calendar tag to export (repeatable, default: all)"
	FlagDescSelect  = "Choose calendars interactively when tags are found"
	FlagDescOutput  = "Output file ('-' for stdout, default derived from calendars)"
	FlagDescOnBad   = "Bad record policy: ask, skip or abort"
	FlagDescDialog  = "Use native dialogs instead of the terminal for questions"
	FlagDescAlarm   = "Emit a display alarm before each event"
	FlagDescTZ      = "IANA timezone of the sheet times (default: host timezone)"
	FlagDescLang    = "Language for prompts (en, fr)"
	FlagDescPort    = "Port for the calendar HTTP server"
	FlagDescRefresh = "Minutes between source reloads while serving (0 disables)"
	FlagDescCalName = "Calendar display name (X-WR-CALNAME)"
	FlagDescSave    = "Persist the effective settings to the settings file"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
	StdoutPath       = "-"
)

// -----------------------------------------------------------------------------
// Bad Record Policies
// -----------------------------------------------------------------------------

const (
	PolicyAsk   = "ask"
	PolicySkip  = "skip"
	PolicyAbort = "abort"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyBadRecord       = "bad_record"       // Requires Reason, Line
	TKeyBadRecordEvent  = "bad_record_event" // Requires Reason, Line, Event
	TKeyContinuePrompt  = "continue_prompt"  // Question appended to a bad record
	TKeyAborted         = "run_aborted"      // Shown when a run is aborted
	TKeyDialogTitle     = "dialog_title"     // Title of native dialogs
	TKeyBtnContinue     = "btn_continue"     // Skip the row and go on
	TKeyBtnAbort        = "btn_abort"        // Abort the run
	TKeySelectCalendars = "select_calendars" // List dialog text
	TKeySelectAllHint   = "select_all_hint"  // "If none are selected, all are exported"
	TKeyWarningLine     = "warning_line"     // Requires Line, Message
	TKeyExported        = "exported_summary" // Requires Count, Path
	TKeyAnswerYes       = "answer_yes"       // Accepted affirmative answer prefix
	TKeyCalendarsNone   = "calendars_none"   // No Calendar column or tags
	TKeyCalendarsFound  = "calendars_found"  // Heading of the numbered tag list
	TKeyChoiceInvalid   = "choice_invalid"   // Requires Value
	TKeySelectInput     = "select_input"     // Terminal input hint for the tag list
)

// SupportedLanguages defines the list of available prompt languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultLanguage        = "en"
	DefaultDurationText    = "2:00"
	DefaultDurationHours   = 2
	DefaultDurationMinutes = 0
	DefaultPort            = "18080"
	DefaultRefreshMin      = 0
	DefaultOutputName      = "myCalendar"
	OutputExt              = ".ics"

	// MaxDurationHours and MaxDurationMinutes bound the default duration input.
	MaxDurationHours   = 23
	MaxDurationMinutes = 59

	// ExtraRaceHours is added to the default duration for titles naming
	// more than one race (two separate numbers).
	ExtraRaceHours = 1

	// AdvanceHHMM is the alarm lead time on the HHMM scale (2 hours).
	AdvanceHHMM = 200

	// SerialEpochThreshold is the spreadsheet serial of 1 Jan 2020.
	// Larger integral numbers are treated as dates.
	SerialEpochThreshold = 43831

	// MaxDateSerial is the spreadsheet serial of 31 Dec 9999.
	MaxDateSerial = 2958465

	// MonthPrefixLen is the number of letters used to look up a month name.
	MonthPrefixLen = 3

	// MinWeekdayPrefixLen is the shortest token treated as a weekday name.
	MinWeekdayPrefixLen = 2

	// TwoDigitYearBase is added to two-digit years.
	TwoDigitYearBase = 2000

	// MinYear and MaxYear bound the four-digit years a date may carry.
	MinYear = 1000
	MaxYear = 9999
)

// Placeholder windows for unscheduled (TBA/TBC) and not-applicable times.
const (
	TBAStartHour = 9
	TBAEndHour   = 17
	NAStartHour  = 9
	NAEndHour    = 17
	TBASuffix    = " (times TBC)"

	// ClampHour and ClampMinute are used when an event would cross midnight.
	ClampHour   = 23
	ClampMinute = 59
)

// -----------------------------------------------------------------------------
// Standards: iCalendar
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion    = "2.0"
	ICalProdid     = "-//Go Sheetcal//Engine//EN"
	ICalScale      = "GREGORIAN"
	ICalAlarm      = "VALARM"
	ICalAction     = "DISPLAY"
	ICalTrigger    = "-PT2H"
	HighwaterLabel = ", HW="

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropCreated     = "CREATED"
	PropDTStart     = "DTSTART"
	PropDTEnd       = "DTEND"
	PropDTStamp     = "DTSTAMP"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
)

// -----------------------------------------------------------------------------
// Data Formats, Limits & File Extensions
// -----------------------------------------------------------------------------

const (
	// DateFormatSerial renders spreadsheet date serials.
	DateFormatSerial = "Mon Jan 02 2006"
	// DateFormatPreview is used in previews and logs.
	DateFormatPreview = "2006-01-02"
	// TimeFormatHHMM renders times of day.
	TimeFormatHHMM = "%02d:%02d"

	// File Extensions
	ExtXLSX = ".xlsx"
	ExtXLSM = ".xlsm"
	ExtXLS  = ".xls"
	ExtCSV  = ".csv"

	// XLSCharset is the charset passed to the legacy xls reader.
	XLSCharset = "utf-8"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 * 1024 // 64MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	RouteRoot           = "/"
	AddrSeparator       = ":"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType        = "Content-Type"
	HeaderContentDisposition = "Content-Disposition"
	HeaderCacheControl       = "Cache-Control"
	HeaderETag               = "ETag"
	HeaderLastModified       = "Last-Modified"
	HeaderRetryAfter         = "Retry-After"
	HeaderAllow              = "Allow"
	HeaderXContentType       = "X-Content-Type-Options"
	HeaderUserAgent          = "User-Agent"
	HeaderIfNoneMatch        = "If-None-Match"
	HeaderIfModifiedSince    = "If-Modified-Since"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
	// FormatDisposition expects the file name.
	FormatDisposition = `inline; filename="%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrSourceEmpty     = "configuration error: no spreadsheet source given"
	ErrFetcherMissing  = "internal error: network fetcher is not initialized"
	ErrFormatUnsupport = "unsupported spreadsheet format"
	ErrSheetNotFound   = "sheet not found"
	ErrSheetEmpty      = "workbook has no sheets"
	ErrSheetRead       = "failed to read sheet"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrICalEncode      = "failed to encode iCalendar data"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrConfigDir       = "could not determine user config dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrWriteOutput     = "failed to write calendar"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrSettingsPath    = "settings path is empty"
	ErrSettingsNil     = "settings are nil"
	ErrSettingsLoad    = "failed to load settings"
	ErrSettingsSave    = "failed to save settings"
	ErrRunAborted      = "run aborted at a bad record"
	ErrColumnsMissing  = "required columns are not assigned"
	ErrRoleUnknown     = "unknown column role"
	ErrColumnRef       = "invalid column reference"
	ErrColumnSpec      = "column mapping must look like Role=Column"
	ErrDurationFormat  = "default duration must be H or H:MM"
	ErrDurationRange   = "default duration must be within 0-23 hours and 0-59 minutes"
	ErrTimezone        = "unknown timezone"
	ErrPolicy          = "unknown bad record policy"
	ErrDialog          = "dialog failed"
	ErrPreviewEncode   = "failed to encode preview"
	ErrMonthUnknown    = "invalid month"
	ErrDayUnknown      = "cannot understand day number"
	ErrDayRange        = "day is out of range for the month"
	ErrMonthRange      = "month is out of range"
	ErrYearRange       = "year must have four digits"
	ErrDateUnknown     = "bad date"
	ErrStartUnknown    = "cannot understand start time"
	ErrDurationUnknown = "cannot understand duration"
	ErrSerialDate      = "number is not a valid date serial"
	ErrTimeUnknown     = "cannot understand time"
	ErrTimeRange       = "time is out of range"
	ErrPromptRead      = "failed to read answer"
	ErrSelectCalendars = "failed to select calendars"
	ErrSourceOpen      = "failed to open spreadsheet"
	ErrSourceStatus    = "server returned unexpected status"
	ErrSourceTooLarge  = "spreadsheet download exceeds the size limit"
	ErrEventTitleEmpty = "event title is empty"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Calendar initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	// StubVCalendar is the minimal valid iCalendar object used when no events are accepted.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:" + ICalVersion + "\r\nPRODID:" + ICalProdid +
		"\r\nCALSCALE:" + ICalScale + "\r\nEND:VCALENDAR\r\n"

	MsgGenStarted     = "Calendar generation started"
	MsgGenSuccess     = "Calendar generation successful"
	MsgGenAborted     = "Calendar generation aborted"
	MsgRowIgnored     = "Ignoring row without a plausible start time"
	MsgRowFiltered    = "Skipping row for unselected calendar"
	MsgBadRecord      = "Bad record"
	MsgRowWarning     = "Suspicious row"
	MsgRowAccepted    = "Row accepted"
	MsgSheetLoaded    = "Spreadsheet loaded"
	MsgFetchStart     = "Initiating spreadsheet download"
	MsgFetchStatus    = "Server returned error status"
	MsgFetchDone      = "Spreadsheet downloading"
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Calendar cache updated"
	MsgWorkerStart    = "Background refresh worker started"
	MsgWorkerStop     = "Worker stopping due to context cancellation"
	MsgRefreshFailed  = "Calendar refresh failed"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgSettingsCreate = "Settings file created with defaults"
	MsgSettingsLoaded = "Settings loaded"
	MsgOutputWritten  = "Calendar written"
	MsgPreviewWritten = "Preview written"
	MsgLogWarning     = "Warning: %s: %v\n"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeySheet     = "sheet"
	LogKeyRows      = "rows"
	LogKeyLine      = "line"
	LogKeyEvent     = "event"
	LogKeyReason    = "reason"
	LogKeyKind      = "kind"
	LogKeyValue     = "value"
	LogKeyStats     = "stats"
	LogKeyTotal     = "total_rows"
	LogKeyAccepted  = "accepted"
	LogKeySkipped   = "skipped"
	LogKeyBad       = "bad_records"
	LogKeyWarnings  = "warnings"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyInterval  = "interval"
	LogKeyCalendars = "calendars"
	LogKeyPath      = "path"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyCommit  = "commit"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompEngine   = "engine"
	CompSheet    = "sheet"
	CompFetcher  = "fetcher"
	CompServer   = "server"
	CompWorker   = "worker"
	CompMain     = "main"
	CompI18n     = "i18n"
	CompPrompt   = "prompt"
	CompSettings = "settings"
	CompPreview  = "preview"
)
