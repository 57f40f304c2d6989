package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finitefield.org/quran-web/internal/i18n"
	"finitefield.org/quran-web/internal/quran"
)

func newCheckDataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-data",
		Short: "Validate the embedded chapter table, Juz boundaries and translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			report, err := checkData(cfg.Locales.Fallback, cfg.Locales.Supported)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d chapters, %d juz, %d locales\n", report.chapters, report.juz, report.locales)
			return nil
		},
	}
}

type dataReport struct {
	chapters int
	juz      int
	locales  int
}

func checkData(fallback string, supported []string) (dataReport, error) {
	chapters, err := quran.EmbeddedChapters()
	if err != nil {
		return dataReport{}, fmt.Errorf("chapters: %w", err)
	}
	if err := chapters.Validate(); err != nil {
		return dataReport{}, fmt.Errorf("chapters: %w", err)
	}
	mapping, err := quran.BuildJuzMapping(chapters)
	if err != nil {
		return dataReport{}, fmt.Errorf("juz mapping: %w", err)
	}
	bundle, err := i18n.Embedded(fallback, supported)
	if err != nil {
		return dataReport{}, fmt.Errorf("translations: %w", err)
	}
	return dataReport{chapters: chapters.Len(), juz: len(mapping), locales: len(bundle.Supported())}, nil
}
