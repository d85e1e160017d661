package token

import "strconv"

var kindNames = [...]string{
	Empty:     "Empty",
	Numeric:   "Numeric",
	String:    "String",
	Boolean:   "Boolean",
	Operator:  "Operator",
	LParen:    "LParen",
	RParen:    "RParen",
	Comma:     "Comma",
	ColumnRef: "ColumnRef",
	RowRef:    "RowRef",
	CellRef:   "CellRef",
	TableRef:  "TableRef",
	SubsetRef: "SubsetRef",
	Pending:   "Pending",
	Error:     "Error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

var errorCodeNames = [...]string{
	NoError:           "NoError",
	DivideByZero:      "DivideByZero",
	NaN:               "NaN",
	Infinity:          "Infinity",
	ReferenceRequired: "ReferenceRequired",
	TypeMismatch:      "TypeMismatch",
	InvalidArgument:   "InvalidArgument",
	NotAvailable:      "NotAvailable",
	Cancelled:         "Cancelled",
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return "ErrorCode(" + strconv.Itoa(int(c)) + ")"
}
