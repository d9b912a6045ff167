package models

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

// System default codes identify the accounts a settlement journal posts to.
const (
	AccountCodeBank               = "BNK"
	AccountCodeAccountsReceivable = "AR"
	AccountCodeAccountsPayable    = "AP"
	AccountCodeSales              = "SL"
	AccountCodePurchases          = "PR"
)

type AccountReferenceType string

const (
	AccountReferenceTypeJournal        AccountReferenceType = "JN"
	AccountReferenceTypeReconciliation AccountReferenceType = "RC"
)

type ReconciliationStatus string

const (
	ReconciliationStatusUnreconciled ReconciliationStatus = "Unreconciled"
	ReconciliationStatusReconciled   ReconciliationStatus = "Reconciled"
)

type ObligationStatus string

const (
	ObligationStatusOpen    ObligationStatus = "Open"
	ObligationStatusSettled ObligationStatus = "Settled"
)

// ObligationDirection tells which side of the ledger an open item sits on:
// Receivable = owed to us, Payable = owed by us.
type ObligationDirection string

const (
	ObligationDirectionReceivable ObligationDirection = "Receivable"
	ObligationDirectionPayable    ObligationDirection = "Payable"
)

// ReconcileTargetKind discriminates the two matching modes behind the one
// commit contract: linking against an existing journal (direct entry) vs
// settling an open obligation (which synthesizes a journal).
type ReconcileTargetKind string

const (
	ReconcileTargetKindJournal    ReconcileTargetKind = "Journal"
	ReconcileTargetKindObligation ReconcileTargetKind = "Obligation"
)
