package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// envKeys lists the recognized .env keys, matching the field names in
// TimingConfig. Unset keys keep the Builder default they were seeded with.
var envKeys = []string{
	"DRAMCTRL_PROTOCOL",
	"DRAMCTRL_NUM_RANKS", "DRAMCTRL_NUM_BANKS", "DRAMCTRL_NUM_DEVICES",
	"DRAMCTRL_BL", "DRAMCTRL_WL", "DRAMCTRL_AL",
	"DRAMCTRL_TCK",
	"DRAMCTRL_TRC", "DRAMCTRL_TRAS", "DRAMCTRL_TRCD", "DRAMCTRL_TRP",
	"DRAMCTRL_TRRD", "DRAMCTRL_TRTRS", "DRAMCTRL_TCCD", "DRAMCTRL_TCMD",
	"DRAMCTRL_TRFC", "DRAMCTRL_TCKE", "DRAMCTRL_TXP", "DRAMCTRL_TFAW",
	"DRAMCTRL_TWTR",
	"DRAMCTRL_READ_TO_PRE_DELAY", "DRAMCTRL_WRITE_TO_PRE_DELAY",
	"DRAMCTRL_READ_AUTOPRE_DELAY", "DRAMCTRL_WRITE_AUTOPRE_DELAY",
	"DRAMCTRL_READ_TO_WRITE_DELAY",
	"DRAMCTRL_WRITE_TO_READ_DELAY_B", "DRAMCTRL_WRITE_TO_READ_DELAY_R",
	"DRAMCTRL_REFRESH_PERIOD",
	"DRAMCTRL_TRANS_QUEUE_DEPTH", "DRAMCTRL_CMD_QUEUE_DEPTH",
	"DRAMCTRL_EPOCH_LENGTH", "DRAMCTRL_HISTOGRAM_BIN_SIZE",
	"DRAMCTRL_VDD", "DRAMCTRL_JEDEC_DATA_BUS_BITS",
	"DRAMCTRL_USE_LOW_POWER", "DRAMCTRL_DEBUG_BUS", "DRAMCTRL_DEBUG_POWER",
	"DRAMCTRL_DEBUG_CMD", "DRAMCTRL_VIS_FILE_OUTPUT",
}

// LoadEnv reads a .env-style file with godotenv and applies any recognized
// DRAMCTRL_* keys onto a Builder seeded with MakeBuilder's defaults. Keys
// absent from the file leave the default untouched, so a partial file
// (say, only DRAMCTRL_TRCD) is valid input.
func LoadEnv(path string) (Builder, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Builder{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	b := MakeBuilder()

	for _, key := range envKeys {
		raw, ok := values[key]
		if !ok {
			continue
		}

		if err := applyEnvKey(&b, key, raw); err != nil {
			return Builder{}, fmt.Errorf("config: %s: %w", key, err)
		}
	}

	return b, nil
}

func applyEnvKey(b *Builder, key, raw string) error {
	switch key {
	case "DRAMCTRL_PROTOCOL":
		switch raw {
		case "dram":
			*b = b.WithProtocol(DRAM)
		case "smartmram":
			*b = b.WithProtocol(SmartMRAM)
		default:
			return fmt.Errorf("unknown protocol %q", raw)
		}
	case "DRAMCTRL_NUM_RANKS":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithNumRanks(v)
	case "DRAMCTRL_NUM_BANKS":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithNumBanks(v)
	case "DRAMCTRL_NUM_DEVICES":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithNumDevices(v)
	case "DRAMCTRL_BL":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithBL(v)
	case "DRAMCTRL_WL":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithWL(v)
	case "DRAMCTRL_AL":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithAL(v)
	case "DRAMCTRL_TCK":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*b = b.WithTCK(v)
	case "DRAMCTRL_TRC":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRC(v)
	case "DRAMCTRL_TRAS":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRAS(v)
	case "DRAMCTRL_TRCD":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRCD(v)
	case "DRAMCTRL_TRP":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRP(v)
	case "DRAMCTRL_TRRD":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRRD(v)
	case "DRAMCTRL_TRTRS":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRTRS(v)
	case "DRAMCTRL_TCCD":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTCCD(v)
	case "DRAMCTRL_TCMD":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTCMD(v)
	case "DRAMCTRL_TRFC":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTRFC(v)
	case "DRAMCTRL_TCKE":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTCKE(v)
	case "DRAMCTRL_TXP":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTXP(v)
	case "DRAMCTRL_TFAW":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTFAW(v)
	case "DRAMCTRL_TWTR":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithTWTR(v)
	case "DRAMCTRL_READ_TO_PRE_DELAY":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithReadToPreDelay(v)
	case "DRAMCTRL_WRITE_TO_PRE_DELAY":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithWriteToPreDelay(v)
	case "DRAMCTRL_READ_AUTOPRE_DELAY":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithReadAutoPreDelay(v)
	case "DRAMCTRL_WRITE_AUTOPRE_DELAY":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithWriteAutoPreDelay(v)
	case "DRAMCTRL_READ_TO_WRITE_DELAY":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithReadToWriteDelay(v)
	case "DRAMCTRL_WRITE_TO_READ_DELAY_B":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithWriteToReadDelayB(v)
	case "DRAMCTRL_WRITE_TO_READ_DELAY_R":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithWriteToReadDelayR(v)
	case "DRAMCTRL_REFRESH_PERIOD":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithRefreshPeriod(v)
	case "DRAMCTRL_TRANS_QUEUE_DEPTH":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithTransQueueDepth(v)
	case "DRAMCTRL_CMD_QUEUE_DEPTH":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithCmdQueueDepth(v)
	case "DRAMCTRL_EPOCH_LENGTH":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithEpochLength(v)
	case "DRAMCTRL_HISTOGRAM_BIN_SIZE":
		v, err := parseUint(raw)
		if err != nil {
			return err
		}
		*b = b.WithHistogramBinSize(v)
	case "DRAMCTRL_VDD":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*b = b.WithVdd(v)
	case "DRAMCTRL_JEDEC_DATA_BUS_BITS":
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*b = b.WithJEDECDataBusBits(v)
	case "DRAMCTRL_USE_LOW_POWER":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*b = b.WithLowPower(v)
	case "DRAMCTRL_DEBUG_BUS":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*b = b.WithDebugBus(v)
	case "DRAMCTRL_DEBUG_POWER":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*b = b.WithDebugPower(v)
	case "DRAMCTRL_DEBUG_CMD":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*b = b.WithDebugCmd(v)
	case "DRAMCTRL_VIS_FILE_OUTPUT":
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*b = b.WithVisFileOutput(v)
	}

	return nil
}

func parseUint(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

// EnsureFileExists is a small guard cmd/dramsim uses before handing a path
// to LoadEnv, so a missing --config file produces a clear CLI error instead
// of godotenv's generic one.
func EnsureFileExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	return nil
}
