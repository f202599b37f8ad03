package models

// Column names of the corporates-pit feed that receive typed treatment.
// Any column not listed here passes through as a plain string.
const (
	ColSymbol          = "symbol"
	ColCompany         = "company"
	ColName            = "name"
	ColDate            = "date"
	ColSecVal          = "secVal"
	ColTransactionType = "tdpTransactionType"
)

// DateColumns are parsed from the feed's "02-Jan-2006 15:04" form.
var DateColumns = []string{"date", "acqfromDt", "acqtoDt", "intimDt"}

// NumericColumns are parsed as decimal numbers. Note the lower-case
// "sellquantity": that is how the feed spells it.
var NumericColumns = []string{
	"buyValue", "sellValue", "buyQuantity", "sellquantity", "secAcq",
	"befAcqSharesNo", "befAcqSharesPer", "secVal",
	"afterAcqSharesNo", "afterAcqSharesPer",
}

// KeyColumns is the ordered field subset an identity key is derived from.
var KeyColumns = []string{
	ColSymbol, ColCompany, ColName, ColDate, ColSecVal, ColTransactionType,
}

// FeedTimeLayout is the timestamp format the NSE feed uses in date cells.
const FeedTimeLayout = "02-Jan-2006 15:04"
