package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jeovahfialho/nft-ledger/internal/domain"
	"github.com/jeovahfialho/nft-ledger/internal/report"
)

func newAssetCmd() *cobra.Command {
	assetCmd := &cobra.Command{
		Use:   "asset",
		Short: "Gerencia NFTs comprados",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Registra a compra de um NFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			project, _ := cmd.Flags().GetString("project")
			priceStr, _ := cmd.Flags().GetString("price")
			dateStr, _ := cmd.Flags().GetString("date")
			recordTx, _ := cmd.Flags().GetBool("record-tx")

			price, err := parseDecimal(priceStr)
			if err != nil {
				return err
			}
			date, err := parseDateOrToday(dateStr)
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset := &domain.Asset{Project: project, PurchasePrice: price, PurchaseDate: date}
			id, err := a.assets.Insert(ctx, asset)
			if err != nil {
				return err
			}
			fmt.Printf("✅ NFT #%d registrado: %s por %s\n", id, project, report.FormatMoney(price, cfg.Currency))

			if recordTx {
				txID, err := a.txs.Insert(ctx, &domain.TransactionRecord{
					Transaction: domain.Transaction{Price: price, Date: date, Type: domain.Buy},
				})
				if err != nil {
					return fmt.Errorf("NFT salvo, mas erro ao registrar transação: %w", err)
				}
				fmt.Printf("🧾 Transação Buy #%d registrada\n", txID)
			}
			return nil
		},
	}
	addCmd.Flags().StringP("project", "p", "", "Nome do projeto/coleção")
	addCmd.Flags().String("price", "", "Preço de compra")
	addCmd.Flags().StringP("date", "d", "", "Data da compra (YYYY-MM-DD), padrão: hoje")
	addCmd.Flags().Bool("record-tx", true, "Registra também uma transação Buy")
	addCmd.MarkFlagRequired("project")
	addCmd.MarkFlagRequired("price")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista NFTs comprados",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			project, _ := cmd.Flags().GetString("project")
			asJSON, _ := cmd.Flags().GetBool("json")
			from, to, err := dateRangeFlags(cmd)
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			assets, err := a.assets.List(ctx, domain.AssetFilter{Project: project, From: from, To: to})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(assets)
			}
			if len(assets) == 0 {
				fmt.Println("❌ Nenhum NFT encontrado")
				return nil
			}

			tw := newTable()
			fmt.Fprintln(tw, "ID\tPROJETO\tPREÇO\tDATA\t")
			for _, asset := range assets {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", asset.ID, asset.Project,
					report.FormatMoney(asset.PurchasePrice, cfg.Currency), asset.PurchaseDate.Format(domain.DateFormat))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringP("project", "p", "", "Filtra por projeto (contém)")
	addDateRangeFlags(listCmd)
	listCmd.Flags().Bool("json", false, "Saída em JSON")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Mostra um NFT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			asset, err := a.assets.FindByID(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(asset)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove um NFT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.assets.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("🗑️  NFT #%d removido\n", id)
			return nil
		},
	}

	assetCmd.AddCommand(addCmd, listCmd, getCmd, deleteCmd)
	return assetCmd
}

func newSaleCmd() *cobra.Command {
	saleCmd := &cobra.Command{
		Use:   "sale",
		Short: "Gerencia vendas de NFTs",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Registra a venda de um NFT",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assetID, _ := cmd.Flags().GetInt64("asset")
			priceStr, _ := cmd.Flags().GetString("price")
			purchaseStr, _ := cmd.Flags().GetString("purchase-price")
			dateStr, _ := cmd.Flags().GetString("date")
			recordTx, _ := cmd.Flags().GetBool("record-tx")

			price, err := parseDecimal(priceStr)
			if err != nil {
				return err
			}
			purchase := decimal.Zero
			if purchaseStr != "" {
				if purchase, err = parseDecimal(purchaseStr); err != nil {
					return err
				}
			}
			date, err := parseDateOrToday(dateStr)
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sale := &domain.Sale{AssetID: assetID, PurchasePrice: purchase, SalePrice: price, SaleDate: date}
			id, err := a.sales.Insert(ctx, sale)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Venda #%d registrada: NFT #%d por %s (lucro %s)\n", id, assetID,
				report.FormatMoney(price, cfg.Currency), report.FormatMoney(sale.Profit(), cfg.Currency))

			if recordTx {
				txID, err := a.txs.Insert(ctx, &domain.TransactionRecord{
					Transaction: domain.Transaction{Price: price, Date: date, Type: domain.Sell},
				})
				if err != nil {
					return fmt.Errorf("venda salva, mas erro ao registrar transação: %w", err)
				}
				fmt.Printf("🧾 Transação Sell #%d registrada\n", txID)
			}
			return nil
		},
	}
	addCmd.Flags().Int64P("asset", "a", 0, "ID do NFT vendido")
	addCmd.Flags().String("price", "", "Preço de venda")
	addCmd.Flags().String("purchase-price", "", "Preço de compra, padrão: o do NFT")
	addCmd.Flags().StringP("date", "d", "", "Data da venda (YYYY-MM-DD), padrão: hoje")
	addCmd.Flags().Bool("record-tx", true, "Registra também uma transação Sell")
	addCmd.MarkFlagRequired("asset")
	addCmd.MarkFlagRequired("price")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista vendas",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")
			from, to, err := dateRangeFlags(cmd)
			if err != nil {
				return err
			}

			filter := domain.SaleFilter{From: from, To: to}
			if cmd.Flags().Changed("asset") {
				assetID, _ := cmd.Flags().GetInt64("asset")
				filter.AssetID = &assetID
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sales, err := a.sales.List(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(sales)
			}
			if len(sales) == 0 {
				fmt.Println("❌ Nenhuma venda encontrada")
				return nil
			}

			total := decimal.Zero
			tw := newTable()
			fmt.Fprintln(tw, "ID\tNFT\tCOMPRA\tVENDA\tLUCRO\tDATA\t")
			for _, s := range sales {
				total = total.Add(s.Profit())
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t\n", s.ID, s.AssetID,
					report.FormatMoney(s.PurchasePrice, cfg.Currency),
					report.FormatMoney(s.SalePrice, cfg.Currency),
					report.FormatMoney(s.Profit(), cfg.Currency),
					s.SaleDate.Format(domain.DateFormat))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Printf("\n📊 Lucro total: %s\n", report.FormatMoney(total, cfg.Currency))
			return nil
		},
	}
	listCmd.Flags().Int64P("asset", "a", 0, "Filtra por NFT")
	addDateRangeFlags(listCmd)
	listCmd.Flags().Bool("json", false, "Saída em JSON")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Mostra uma venda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			sale, err := a.sales.FindByID(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(sale)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove uma venda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.sales.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("🗑️  Venda #%d removida\n", id)
			return nil
		},
	}

	saleCmd.AddCommand(addCmd, listCmd, getCmd, deleteCmd)
	return saleCmd
}

func newTxCmd() *cobra.Command {
	txCmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Gerencia transações usadas no cálculo de saldo",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Registra uma transação",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			typeStr, _ := cmd.Flags().GetString("type")
			priceStr, _ := cmd.Flags().GetString("price")
			dateStr, _ := cmd.Flags().GetString("date")

			price, err := parseDecimal(priceStr)
			if err != nil {
				return err
			}
			date, err := parseDateOrToday(dateStr)
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := &domain.TransactionRecord{Transaction: domain.Transaction{
				Price: price,
				Date:  date,
				Type:  domain.ParseTransactionType(typeStr),
			}}
			id, err := a.txs.Insert(ctx, rec)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Transação %s #%d registrada: %s em %s\n", rec.Type, id,
				report.FormatMoney(price, cfg.Currency), date.Format(domain.DateFormat))
			return nil
		},
	}
	addCmd.Flags().StringP("type", "t", "", "Buy ou Sell")
	addCmd.Flags().String("price", "", "Valor da transação")
	addCmd.Flags().StringP("date", "d", "", "Data (YYYY-MM-DD), padrão: hoje")
	addCmd.MarkFlagRequired("type")
	addCmd.MarkFlagRequired("price")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista transações",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			typeStr, _ := cmd.Flags().GetString("type")
			asJSON, _ := cmd.Flags().GetBool("json")
			from, to, err := dateRangeFlags(cmd)
			if err != nil {
				return err
			}

			filter := domain.TransactionFilter{From: from, To: to}
			if typeStr != "" {
				filter.Type = domain.ParseTransactionType(typeStr)
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.txs.List(ctx, filter)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(records)
			}
			if len(records) == 0 {
				fmt.Println("❌ Nenhuma transação encontrada")
				return nil
			}

			tw := newTable()
			fmt.Fprintln(tw, "ID\tDATA\tTIPO\tVALOR\tLOTE\t")
			for _, r := range records {
				batch := "-"
				if r.ImportBatch != nil {
					batch = r.ImportBatch.String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", r.ID, r.Date.Format(domain.DateFormat),
					r.Type, report.FormatMoney(r.Price, cfg.Currency), batch)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringP("type", "t", "", "Filtra por tipo (Buy ou Sell)")
	addDateRangeFlags(listCmd)
	listCmd.Flags().Bool("json", false, "Saída em JSON")

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Mostra uma transação",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.txs.FindByID(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove uma transação",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.txs.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("🗑️  Transação #%d removida\n", id)
			return nil
		},
	}

	undoCmd := &cobra.Command{
		Use:   "undo-import [lote]",
		Short: "Remove todas as transações de uma importação",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			batch, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("lote inválido %q: %w", args[0], err)
			}

			a, err := connect(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.txs.DeleteBatch(ctx, batch)
			if err != nil {
				return err
			}
			fmt.Printf("🗑️  %d transação(ões) do lote %s removida(s)\n", removed, batch)
			return nil
		},
	}

	txCmd.AddCommand(addCmd, listCmd, getCmd, deleteCmd, undoCmd)
	return txCmd
}

func addDateRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Data inicial (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Data final (YYYY-MM-DD)")
}

func dateRangeFlags(cmd *cobra.Command) (*time.Time, *time.Time, error) {
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	from, err := parseOptionalDate(fromStr)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseOptionalDate(toStr)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("--to (%s) anterior a --from (%s)", toStr, fromStr)
	}
	return from, to, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("data inválida %q (use YYYY-MM-DD): %w", s, err)
	}
	return &t, nil
}

func parseDateOrToday(s string) (time.Time, error) {
	if s == "" {
		return domain.DateOf(time.Now()), nil
	}
	t, err := parseOptionalDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return *t, nil
}

// parseDecimal accepts both "1234.56" and "1234,56".
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("valor inválido %q: %w", s, err)
	}
	return d, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id inválido %q", s)
	}
	return id, nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
