package dispatch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
)

// Info is a snapshot of what the server is playing.
type Info struct {
	State      protocol.PlayState
	File       string
	Title      string
	Artist     string
	Album      string
	CurrentSec int
	TotalSec   int
	Volume     int
}

// TimeLeft is zero when the total time is unknown.
func (i Info) TimeLeft() int {
	if i.TotalSec <= 0 {
		return 0
	}
	return max(i.TotalSec-i.CurrentSec, 0)
}

// QueryInfo asks the server for the current state, track and mixer level.
// When stopped only the state and volume are requested.
func QueryInfo(c ipc.Conn) (Info, error) {
	var info Info

	state, err := requestData(c, protocol.CommandGetState)
	if err != nil {
		return Info{}, err
	}
	info.State = protocol.PlayState(state)

	if info.State != protocol.StateStop {
		if info.File, err = requestText(c, protocol.CommandGetSName, nil); err != nil {
			return Info{}, err
		}
		for _, tag := range []struct {
			name string
			dst  *string
		}{
			{"title", &info.Title},
			{"artist", &info.Artist},
			{"album", &info.Album},
		} {
			name := tag.name
			if *tag.dst, err = requestText(c, protocol.CommandGetTag, &name); err != nil {
				return Info{}, err
			}
		}

		ctime, err := requestData(c, protocol.CommandGetCTime)
		if err != nil {
			return Info{}, err
		}
		info.CurrentSec = int(ctime)

		ttime, err := requestData(c, protocol.CommandGetTTime)
		if err != nil {
			return Info{}, err
		}
		info.TotalSec = int(ttime)
	}

	volume, err := requestData(c, protocol.CommandGetMixer)
	if err != nil {
		return Info{}, err
	}
	info.Volume = int(volume)

	return info, nil
}

// FormatTime renders seconds as m:ss, or h:mm:ss past an hour.
func FormatTime(sec int) string {
	if sec < 0 {
		return ""
	}
	h, m, s := sec/3600, (sec/60)%60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Render substitutes %state %file %title %artist %album %tt %tl %ts %ct %cs %vol.
func (i Info) Render(format string) string {
	r := strings.NewReplacer(
		"%state", i.State.String(),
		"%file", i.File,
		"%title", i.Title,
		"%artist", i.Artist,
		"%album", i.Album,
		"%tt", FormatTime(i.TotalSec),
		"%tl", FormatTime(i.TimeLeft()),
		"%ts", strconv.Itoa(i.TotalSec),
		"%ct", FormatTime(i.CurrentSec),
		"%cs", strconv.Itoa(i.CurrentSec),
		"%vol", strconv.Itoa(i.Volume),
	)
	return r.Replace(format)
}

func (d *Dispatcher) fileInfo() error {
	info, err := QueryInfo(d.conn)
	if err != nil {
		return err
	}

	fmt.Fprintf(d.out, "State: %s\n", info.State)
	if info.State != protocol.StateStop {
		fmt.Fprintf(d.out, "File: %s\n", info.File)
		fmt.Fprintf(d.out, "Title: %s\n", info.Title)
		fmt.Fprintf(d.out, "Artist: %s\n", info.Artist)
		fmt.Fprintf(d.out, "Album: %s\n", info.Album)
		if stat, err := os.Stat(info.File); err == nil {
			fmt.Fprintf(d.out, "Size: %s\n", humanize.Bytes(uint64(stat.Size())))
		}
		fmt.Fprintf(d.out, "TotalTime: %s\n", FormatTime(info.TotalSec))
		fmt.Fprintf(d.out, "TimeLeft: %s\n", FormatTime(info.TimeLeft()))
		fmt.Fprintf(d.out, "TotalSec: %d\n", info.TotalSec)
		fmt.Fprintf(d.out, "CurrentTime: %s\n", FormatTime(info.CurrentSec))
		fmt.Fprintf(d.out, "CurrentSec: %d\n", info.CurrentSec)
	}
	fmt.Fprintf(d.out, "Volume: %d\n", info.Volume)
	return nil
}

func (d *Dispatcher) formattedInfo(format string) error {
	info, err := QueryInfo(d.conn)
	if err != nil {
		return err
	}
	fmt.Fprintln(d.out, info.Render(format))
	return nil
}
