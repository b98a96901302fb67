package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// I/O
	IOLoadFileError Code = 1001
	IOCacheError    Code = 1002

	// Синтаксис (ошибки от парсера tree-sitter)
	SynInfo        Code = 2000
	SynParseError  Code = 2001
	SynMissingNode Code = 2002
	SynUnsupported Code = 2003

	// Семантика: таблица символов и поиск имён
	SemaInfo              Code = 3000
	SemaError             Code = 3001
	SemaMultiplyDefined   Code = 3002
	SemaScopeMismatch     Code = 3003
	SemaUndefined         Code = 3004
	SemaTypeError         Code = 3005
	SemaInternalError     Code = 3006
	SemaBadUsing          Code = 3007
	SemaNoViableOverload  Code = 3008
	SemaAmbiguousOverload Code = 3009
	SemaDependentName     Code = 3010
	SemaNameTruncated     Code = 3011

	// Проект / конфигурация
	PrjConfigError Code = 5001

	// Наблюдаемость
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	IOLoadFileError:       "I/O load file error",
	IOCacheError:          "Analysis cache error",
	SynInfo:               "Syntax information",
	SynParseError:         "Syntax error",
	SynMissingNode:        "Missing syntax node",
	SynUnsupported:        "Unsupported construct",
	SemaInfo:              "Semantic information",
	SemaError:             "Semantic error",
	SemaMultiplyDefined:   "Symbol multiply defined",
	SemaScopeMismatch:     "Scope stack mismatch",
	SemaUndefined:         "Undefined symbol",
	SemaTypeError:         "Name does not denote the expected kind of entity",
	SemaInternalError:     "Internal symbol table error",
	SemaBadUsing:          "Invalid using directive",
	SemaNoViableOverload:  "No viable function for call",
	SemaAmbiguousOverload: "Several viable functions for call",
	SemaDependentName:     "Name depends on a template parameter",
	SemaNameTruncated:     "Name exceeds the encoding length limit",
	PrjConfigError:        "Project configuration error",
	ObsTimings:            "Analysis timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
