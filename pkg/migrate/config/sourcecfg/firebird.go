package sourcecfg

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/baderkha/fb-bronze/pkg/migrate/table/colmap"
)

// DefaultTableList : tables loaded when the job names none
var DefaultTableList = []string{
	"FC11000",
	"FC11100",
	"FC01000",
	"FC03110",
	"FC03000",
	"FC03140",
	"FC03160",
	"FC03100",
	"FC12100",
	"FC02000",
	"FC02200",
	"FC07000",
	"FC07100",
	"FC07200",
	"FC03100",
	"FC15000",
	"FC15100",
	"FC15110",
	"FC03140",
	"FC03110",
	"FC03160",
	"FC03190",
	"FC12100",
	"FC14000",
	"FC14100",
	"FC12110",
	"FC03J10",
}

type Firebird struct {
	TableList    []string `json:"table_list"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Database     string   `json:"database"`
	UserName     string   `json:"user_name"`
	Password     string   `json:"password"`
	Charset      string   `json:"charset"`
	MaxOpenConns int      `json:"max_open_conns"`
	QueryLogging bool     `json:"query_log"`
}

func (f *Firebird) GetDSN() string {
	return fmt.Sprintf("%s:%s@%s:%d/%s?charset=%s",
		url.PathEscape(f.UserName), url.PathEscape(f.Password), f.Host, f.Port, f.Database, url.QueryEscape(f.Charset))
}

// ApplyEnv : FIREBIRD_* variables win over the job file
func (f *Firebird) ApplyEnv(getenv func(string) string) error {
	setStr(&f.Host, getenv("FIREBIRD_HOST"))
	setStr(&f.Database, getenv("FIREBIRD_DATABASE"))
	setStr(&f.UserName, getenv("FIREBIRD_USER"))
	setStr(&f.Password, getenv("FIREBIRD_PASSWORD"))
	setStr(&f.Charset, getenv("FIREBIRD_CHARSET"))
	if v := getenv("TABLES"); v != "" {
		f.TableList = SplitList(v)
	}
	if v := getenv("FIREBIRD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FIREBIRD_PORT : %w", err)
		}
		f.Port = port
	}
	return nil
}

func (f *Firebird) SetDefaults() {
	if f.Port == 0 {
		f.Port = 3050
	}
	if f.Charset == "" {
		f.Charset = "ISO8859_1"
	}
	if f.MaxOpenConns == 0 {
		f.MaxOpenConns = 2
	}
	if len(f.TableList) == 0 {
		f.TableList = append([]string(nil), DefaultTableList...)
	}
}

func (f *Firebird) Validate() []error {
	var errs []error
	if f.Host == "" {
		errs = append(errs, fmt.Errorf("source : host is required"))
	}
	if f.Database == "" {
		errs = append(errs, fmt.Errorf("source : database is required"))
	}
	if f.UserName == "" {
		errs = append(errs, fmt.Errorf("source : user_name is required"))
	}
	if _, err := colmap.NewTextDecoder(f.Charset); err != nil {
		errs = append(errs, fmt.Errorf("source : charset : %w", err))
	}
	return errs
}

// SplitList : comma separated names, blanks dropped
func SplitList(v string) []string {
	var res []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			res = append(res, s)
		}
	}
	return res
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
