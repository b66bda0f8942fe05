package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fhk/fhk/internal/config"
	"github.com/fhk/fhk/internal/domain/backup"
	"github.com/fhk/fhk/internal/domain/record"
	"github.com/fhk/fhk/internal/domain/search"
	"github.com/fhk/fhk/internal/platform/blobstore"
	"github.com/fhk/fhk/internal/platform/storage"
	"github.com/fhk/fhk/internal/platform/vault"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fhk",
		Short: "Family Health Keeper: local encrypted medical records",
	}

	rootCmd.AddCommand(patientCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wired core: everything the commands operate on.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	dev     storage.Store
	store   *record.Store
	service *record.Service
	index   *search.Index
	blobs   *blobstore.Store
	orch    *backup.Orchestrator
}

// withApp loads config, opens the device store, loads persisted state and
// rebuilds the search index, runs fn, and closes the store again.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	dev, err := storage.OpenLevelDB(filepath.Join(cfg.DataDir, "fhk.db"))
	if err != nil {
		return err
	}
	defer dev.Close()

	deviceID, err := storage.EnsureDeviceID(ctx, dev)
	if err != nil {
		return err
	}

	store := record.New()
	if err := store.Load(ctx, dev); err != nil {
		return err
	}

	index := search.NewIndex()
	service := record.NewService(store, index, logger)
	service.ReindexAll()

	orch, err := backup.New(ctx, store, dev, index, backup.Options{
		DeviceID:        deviceID,
		HistoryCapacity: cfg.HistoryCapacity,
		Compress:        cfg.Compress,
		KDFIterations:   cfg.KDFIterations,
	}, logger)
	if err != nil {
		return err
	}

	return fn(ctx, &app{
		cfg:     cfg,
		logger:  logger,
		dev:     dev,
		store:   store,
		service: service,
		index:   index,
		blobs:   blobstore.New(dev),
		orch:    orch,
	})
}

// run adapts withApp to cobra's RunE signature.
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			return fn(ctx, a, cmd, args)
		})
	}
}

func patientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			name, _ := c.Flags().GetString("name")
			dob, _ := c.Flags().GetString("dob")
			history, _ := c.Flags().GetString("history")

			p, err := a.service.AddPatient(&record.Patient{
				Name:           name,
				DateOfBirth:    dob,
				MedicalHistory: history,
			})
			if err != nil {
				return err
			}
			if err := a.store.Save(ctx, a.dev); err != nil {
				return err
			}
			fmt.Printf("Added patient %s (%s)\n", p.Name, p.ID)
			return nil
		}),
	}
	addCmd.Flags().String("name", "", "Patient display name (required)")
	addCmd.Flags().String("dob", "", "Date of birth, YYYY-MM-DD")
	addCmd.Flags().String("history", "", "Free-text medical history")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			for _, p := range a.store.Patients() {
				fmt.Printf("%-36s  %-24s  records:%d\n", p.ID, p.Name, len(p.Records))
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <patient-id>",
		Short: "Delete a patient and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			if !a.service.DeletePatient(args[0]) {
				return fmt.Errorf("patient %q not found", args[0])
			}
			return a.store.Save(ctx, a.dev)
		}),
	})

	return cmd
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctors",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a doctor",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			name, _ := c.Flags().GetString("name")
			specialty, _ := c.Flags().GetString("specialty")

			d, err := a.service.AddDoctor(&record.Doctor{Name: name, Specialty: specialty})
			if err != nil {
				return err
			}
			if err := a.store.Save(ctx, a.dev); err != nil {
				return err
			}
			fmt.Printf("Added doctor %s (%s)\n", d.Name, d.ID)
			return nil
		}),
	}
	addCmd.Flags().String("name", "", "Doctor name (required)")
	addCmd.Flags().String("specialty", "", "Specialty")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List doctors",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			for _, d := range a.store.Doctors() {
				fmt.Printf("%-36s  %-24s  %s\n", d.ID, d.Name, d.Specialty)
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <doctor-id>",
		Short: "Delete a doctor (refused while referenced)",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			if err := a.service.DeleteDoctor(args[0]); err != nil {
				return err
			}
			return a.store.Save(ctx, a.dev)
		}),
	})

	return cmd
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage visit records",
	}

	addCmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Add a visit record",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			date, _ := c.Flags().GetString("date")
			doctorID, _ := c.Flags().GetString("doctor")
			complaint, _ := c.Flags().GetString("complaint")
			diagnosis, _ := c.Flags().GetString("diagnosis")
			prescription, _ := c.Flags().GetString("prescription")
			notes, _ := c.Flags().GetString("notes")

			r, err := a.service.AddRecord(args[0], &record.MedicalRecord{
				Date:         date,
				DoctorID:     doctorID,
				Complaint:    complaint,
				Diagnosis:    diagnosis,
				Prescription: prescription,
				Notes:        notes,
			})
			if err != nil {
				return err
			}
			if err := a.store.Save(ctx, a.dev); err != nil {
				return err
			}
			fmt.Printf("Added record %s\n", r.ID)
			return nil
		}),
	}
	addCmd.Flags().String("date", "", "Visit date, YYYY-MM-DD (required)")
	addCmd.Flags().String("doctor", "", "Doctor id")
	addCmd.Flags().String("complaint", "", "Chief complaint")
	addCmd.Flags().String("diagnosis", "", "Diagnosis")
	addCmd.Flags().String("prescription", "", "Prescription")
	addCmd.Flags().String("notes", "", "Notes")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list <patient-id>",
		Short: "List a patient's records, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			p, ok := a.store.Patient(args[0])
			if !ok {
				return fmt.Errorf("patient %q not found", args[0])
			}
			for _, r := range p.Records {
				fmt.Printf("%-36s  %s  %s\n", r.ID, r.Date, r.Complaint)
			}
			return nil
		}),
	})

	attachCmd := &cobra.Command{
		Use:   "attach <patient-id> <record-id> <file>",
		Short: "Attach a file to a record, stored as a device blob",
		Args:  cobra.ExactArgs(3),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			docType, _ := c.Flags().GetString("type")

			content, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			ref, err := a.blobs.Put(ctx, content)
			if err != nil {
				return err
			}
			d, err := a.service.AddDocument(args[0], args[1], &record.Document{
				Name:       filepath.Base(args[2]),
				Type:       docType,
				ContentRef: ref,
			})
			if err != nil {
				// The document never made it in; don't strand its blob.
				a.blobs.Delete(ctx, ref)
				return err
			}
			if err := a.store.Save(ctx, a.dev); err != nil {
				return err
			}
			fmt.Printf("Attached %s (%s)\n", d.Name, d.ID)
			return nil
		}),
	}
	attachCmd.Flags().String("type", record.DocumentTypePDF, "Document type: image or pdf")
	cmd.AddCommand(attachCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "detach <patient-id> <record-id> <document-id>",
		Short: "Remove a document and release its blob",
		Args:  cobra.ExactArgs(3),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			d, ok := a.service.DeleteDocument(args[0], args[1], args[2])
			if !ok {
				return fmt.Errorf("document %q not found", args[2])
			}
			if d.ContentRef != "" {
				if err := a.blobs.Delete(ctx, d.ContentRef); err != nil {
					a.logger.Warn().Err(err).Str("document_id", d.ID).Msg("blob release failed")
				}
			}
			return a.store.Save(ctx, a.dev)
		}),
	})

	return cmd
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, export, verify and restore encrypted backups",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an encrypted backup and export it to a file",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			passphrase, _ := c.Flags().GetString("passphrase")
			out, _ := c.Flags().GetString("out")
			if passphrase == "" {
				return fmt.Errorf("--passphrase is required")
			}

			env, err := a.orch.CreateWithPassphrase(ctx, passphrase, false)
			if err != nil {
				return err
			}
			path, err := a.orch.ExportToFile(env, out)
			if err != nil {
				return err
			}
			fmt.Printf("Backup written to %s (%d patients, %d doctors)\n",
				path, env.Metadata.ItemCount.Patients, env.Metadata.ItemCount.Doctors)
			return nil
		}),
	}
	createCmd.Flags().String("passphrase", "", "Backup passphrase (required)")
	createCmd.Flags().String("out", "", "Output path (default fhk_backup_<date>.json)")
	cmd.AddCommand(createCmd)

	verifyCmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check that a backup file decrypts and checksums cleanly",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			passphrase, _ := c.Flags().GetString("passphrase")
			env, key, err := importAndKey(a, args[0], passphrase)
			if err != nil {
				return err
			}
			if !a.orch.Validate(env, key) {
				return fmt.Errorf("backup is NOT valid (wrong passphrase or corrupted file)")
			}
			fmt.Println("Backup is valid.")
			return nil
		}),
	}
	verifyCmd.Flags().String("passphrase", "", "Backup passphrase (required)")
	cmd.AddCommand(verifyCmd)

	restoreCmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore a backup file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			passphrase, _ := c.Flags().GetString("passphrase")
			strategyName, _ := c.Flags().GetString("strategy")

			strategy, err := record.ParseMergeStrategy(strategyName)
			if err != nil {
				return err
			}
			env, key, err := importAndKey(a, args[0], passphrase)
			if err != nil {
				return err
			}
			res, err := a.orch.Restore(ctx, env, key, strategy)
			if err != nil {
				return err
			}
			fmt.Printf("Restored: patients +%d/~%d, doctors +%d/~%d\n",
				res.Patients.Added, res.Patients.Updated,
				res.Doctors.Added, res.Doctors.Updated)
			return nil
		}),
	}
	restoreCmd.Flags().String("passphrase", "", "Backup passphrase (required)")
	restoreCmd.Flags().String("strategy", string(record.MergeReplace), "replace, merge or merge-preserve")
	cmd.AddCommand(restoreCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "Show the backup history, newest first",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			for _, e := range a.orch.History() {
				kind := "manual"
				if e.AutoBackup {
					kind = "auto"
				}
				fmt.Printf("%s  %-6s  %6d bytes  patients:%d doctors:%d  %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), kind, e.Size,
					e.ItemCount.Patients, e.ItemCount.Doctors, e.Checksum[:12])
			}
			return nil
		}),
	})

	return cmd
}

// importAndKey opens a backup file and derives its key from the passphrase
// using the KDF parameters recorded in the envelope.
func importAndKey(a *app, path, passphrase string) (*vault.Envelope, []byte, error) {
	if passphrase == "" {
		return nil, nil, fmt.Errorf("--passphrase is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	env, err := a.orch.ImportFromFile(f)
	if err != nil {
		return nil, nil, err
	}
	if env.Metadata.KeyDerivation == nil {
		return nil, nil, fmt.Errorf("backup has no key-derivation parameters; raw-key backups need the embedding API")
	}
	key, err := env.Metadata.KeyDerivation.KeyFromPassphrase(passphrase)
	if err != nil {
		return nil, nil, err
	}
	return env, key, nil
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search clinical text fragments",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			patientID, _ := c.Flags().GetString("patient")
			fragType, _ := c.Flags().GetString("type")
			urgency, _ := c.Flags().GetString("urgency")
			text, _ := c.Flags().GetString("text")
			from, _ := c.Flags().GetString("from")
			to, _ := c.Flags().GetString("to")

			q := search.Query{
				PatientID: patientID,
				Urgency:   urgency,
				Text:      text,
				From:      from,
				To:        to,
			}
			if fragType != "" {
				q.Types = []string{fragType}
			}
			for _, f := range a.index.Search(q) {
				fmt.Printf("%s  %-13s  %-6s  %s\n", f.Date, f.Type, f.Urgency, f.Content)
			}
			return nil
		}),
	}
	cmd.Flags().String("patient", "", "Restrict to one patient id")
	cmd.Flags().String("type", "", "Fragment type: complaint, investigation, diagnosis, prescription, note")
	cmd.Flags().String("urgency", "", "Urgency: low, medium, high")
	cmd.Flags().String("text", "", "Case-insensitive substring")
	cmd.Flags().String("from", "", "Earliest date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Latest date, YYYY-MM-DD")
	return cmd
}

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <patient-id>",
		Short: "Aggregate a patient's indexed fragments",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			s := a.index.Summarize(args[0])
			fmt.Printf("Fragments: %d over %d records, %d documents\n",
				s.TotalFragments, s.RecordCount, s.DocumentCount)
			for typ, n := range s.ByType {
				fmt.Printf("  %-13s %d\n", typ, n)
			}
			if len(s.TopComplaints) > 0 {
				fmt.Println("Top complaints:")
				for _, t := range s.TopComplaints {
					fmt.Printf("  %3dx  %s\n", t.Count, t.Term)
				}
			}
			if len(s.TopDiagnoses) > 0 {
				fmt.Println("Top diagnoses:")
				for _, t := range s.TopDiagnoses {
					fmt.Printf("  %3dx  %s\n", t.Count, t.Term)
				}
			}
			return nil
		}),
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the auto-backup scheduler until interrupted",
		RunE: run(func(ctx context.Context, a *app, c *cobra.Command, args []string) error {
			passphrase, _ := c.Flags().GetString("passphrase")
			if passphrase == "" {
				return fmt.Errorf("--passphrase is required")
			}
			spec := a.cfg.AutoBackupSpec
			if spec == "" {
				spec = "0 2 * * *"
			}

			sched := backup.NewScheduler(a.orch, passphrase, a.logger)
			if err := sched.Start(spec); err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			sched.Stop()
			return nil
		}),
	}
	cmd.Flags().String("passphrase", "", "Backup passphrase for scheduled backups (required)")
	return cmd
}
