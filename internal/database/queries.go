/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// Profile queries
	profileColumns = `
		address, score, tier, collateral_ratio_bps, credit_limit, interest_rate_bps,
		loans_completed, loans_failed, total_borrowed, total_repaid, report_hash,
		version, created_at, updated_at`

	queryGetProfile = `
		SELECT ` + profileColumns + `
		FROM credit_profiles
		WHERE address = ?`

	queryListProfiles = `
		SELECT ` + profileColumns + `
		FROM credit_profiles
		ORDER BY score DESC, address`

	queryInsertProfile = `
		INSERT INTO credit_profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateProfile = `
		UPDATE credit_profiles
		SET score = ?, tier = ?, collateral_ratio_bps = ?, credit_limit = ?, interest_rate_bps = ?,
		    loans_completed = ?, loans_failed = ?, total_borrowed = ?, total_repaid = ?, report_hash = ?,
		    version = version + 1, updated_at = ?
		WHERE address = ? AND version = ?`

	// History queries
	historyColumns = `
		address, score, tier, loans_completed, loans_failed, total_borrowed, total_repaid,
		current_streak, longest_streak, first_credit_at, version, updated_at`

	queryGetHistory = `
		SELECT ` + historyColumns + `
		FROM credit_histories
		WHERE address = ?`

	queryInsertHistory = `
		INSERT INTO credit_histories (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateHistory = `
		UPDATE credit_histories
		SET score = ?, tier = ?, loans_completed = ?, loans_failed = ?, total_borrowed = ?, total_repaid = ?,
		    current_streak = ?, longest_streak = ?, version = version + 1, updated_at = ?
		WHERE address = ? AND version = ?`

	// Loan queries
	loanColumns = `
		id, borrower, principal, total_amount, remaining_amount, collateral_amount, installment_amount,
		installments_paid, total_installments, next_due_at, interest_rate_bps, active, defaulted,
		version, created_at, closed_at`

	queryInsertLoan = `
		INSERT INTO loans (
			borrower, principal, total_amount, remaining_amount, collateral_amount, installment_amount,
			installments_paid, total_installments, next_due_at, interest_rate_bps, active, defaulted,
			version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	queryGetLoan = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE id = ?`

	queryGetActiveLoan = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE borrower = ? AND active = 1`

	queryListLoansByBorrower = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE borrower = ?
		ORDER BY id`

	queryListActiveLoans = `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE active = 1
		ORDER BY id`

	queryUpdateLoan = `
		UPDATE loans
		SET remaining_amount = ?, installments_paid = ?, next_due_at = ?, active = ?, defaulted = ?,
		    closed_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryLoanCounts = `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN active = 0 AND defaulted = 0 THEN 1 ELSE 0 END), 0)
		FROM loans`

	// Collateral queries
	collateralColumns = `
		id, owner, amount, deposited_at, loan_id, active, version, released_at`

	queryInsertCollateral = `
		INSERT INTO collateral_positions (owner, amount, deposited_at, loan_id, active, version)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	queryGetActiveCollateral = `
		SELECT ` + collateralColumns + `
		FROM collateral_positions
		WHERE owner = ? AND active = 1`

	queryUpdateCollateral = `
		UPDATE collateral_positions
		SET amount = ?, loan_id = ?, active = ?, released_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	// Purchase queries
	purchaseColumns = `
		id, buyer, merchant, item, total_price, installments, installments_paid, paid_amount, loan_id, completed, defaulted, created_at`

	queryInsertPurchase = `
		INSERT INTO purchases (buyer, merchant, item, total_price, installments, installments_paid, paid_amount, loan_id, completed, defaulted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	queryGetPurchase = `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE id = ?`

	queryGetPurchaseByLoan = `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE loan_id = ?`

	queryListPurchasesByBuyer = `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE buyer = ?
		ORDER BY id`

	queryListPurchasesByMerchant = `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE merchant = ?
		ORDER BY id`

	queryPurchasePrices = `
		SELECT total_price FROM purchases`

	queryUpdatePurchase = `
		UPDATE purchases
		SET installments_paid = ?, paid_amount = ?, completed = ?, defaulted = ?
		WHERE id = ?`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE account_id = ?`

	queryGetAllBalances = `
		SELECT account_id, balance, COALESCE(last_entry_id, ''), version, updated_at
		FROM account_balances
		ORDER BY account_id`

	queryReconcileBalance = `
		SELECT amount
		FROM ledger_entries
		WHERE account_id = ?`

	// Ledger entry queries
	queryCheckDuplicateEntry = `
		SELECT id FROM ledger_entries WHERE account_id = ? AND reference = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT balance, version
		FROM account_balances
		WHERE account_id = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (account_id, balance, version, updated_at)
		VALUES (?, ?, ?, ?)`

	queryInsertEntry = `
		INSERT INTO ledger_entries (
			id, account_id, entry_type, amount, balance_before, balance_after, reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = ?
		WHERE account_id = ? AND version = ?`

	queryGetEntries = `
		SELECT id, account_id, entry_type, amount, balance_before, balance_after, reference, created_at
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?`
)
